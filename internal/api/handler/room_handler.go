package handler

import (
	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/service"
	"campus-planning/backend/pkg/response"
)

// RoomHandler 教室模块 HTTP 处理器
type RoomHandler struct {
	roomSvc         service.RoomService
	availabilitySvc service.AvailabilityService
}

// NewRoomHandler 创建 RoomHandler
func NewRoomHandler(roomSvc service.RoomService, availabilitySvc service.AvailabilityService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc, availabilitySvc: availabilitySvc}
}

// ListRooms 获取教室列表
// GET /api/v1/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var req dto.RoomListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	list, total, err := h.roomSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetRoom 获取教室详情
// GET /api/v1/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id, ok := requireID(c, "id", "教室ID不能为空")
	if !ok {
		return
	}

	room, err := h.roomSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, room)
}

// CreateRoom 创建教室
// POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	room, err := h.roomSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, room)
}

// UpdateRoom 更新教室
// PUT /api/v1/rooms/:id
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	id, ok := requireID(c, "id", "教室ID不能为空")
	if !ok {
		return
	}

	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	room, err := h.roomSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, room)
}

// DeleteRoom 删除教室；仍有课次时需 cascade=true
// DELETE /api/v1/rooms/:id
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	id, ok := requireID(c, "id", "教室ID不能为空")
	if !ok {
		return
	}

	var req dto.DeleteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.roomSvc.Delete(c.Request.Context(), id, req.Cascade, callerID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// ── 临时关闭 ──

// ListClosures 获取教室关闭记录
// GET /api/v1/rooms/:id/closures
func (h *RoomHandler) ListClosures(c *gin.Context) {
	id, ok := requireID(c, "id", "教室ID不能为空")
	if !ok {
		return
	}

	closures, err := h.availabilitySvc.ListClosures(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, gin.H{"list": closures})
}

// CreateClosure 登记关闭日期段，覆盖日期内全部时间段置为不可用
// POST /api/v1/rooms/:id/closures
func (h *RoomHandler) CreateClosure(c *gin.Context) {
	id, ok := requireID(c, "id", "教室ID不能为空")
	if !ok {
		return
	}

	var req dto.CreateRoomClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	closure, err := h.availabilitySvc.CreateClosure(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, closure)
}

// DeleteClosure 删除关闭记录并重新开放对应格子
// DELETE /api/v1/rooms/:id/closures/:closure_id
func (h *RoomHandler) DeleteClosure(c *gin.Context) {
	id, ok := requireID(c, "id", "教室ID不能为空")
	if !ok {
		return
	}
	closureID, ok := requireID(c, "closure_id", "关闭记录ID不能为空")
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.availabilitySvc.DeleteClosure(c.Request.Context(), id, closureID, callerID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}

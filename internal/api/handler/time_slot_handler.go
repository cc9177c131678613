package handler

import (
	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/service"
	"campus-planning/backend/pkg/response"
)

// TimeSlotHandler 时间段目录（每日固定节次）
type TimeSlotHandler struct {
	timeSlotSvc service.TimeSlotService
}

// NewTimeSlotHandler 创建 TimeSlotHandler
func NewTimeSlotHandler(timeSlotSvc service.TimeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{timeSlotSvc: timeSlotSvc}
}

// ListTimeSlots 按节次序号返回目录；默认只含启用的节次
// GET /api/v1/time-slots?include_inactive=true
func (h *TimeSlotHandler) ListTimeSlots(c *gin.Context) {
	var req dto.TimeSlotListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "include_inactive 参数无效", err)
		return
	}

	slots, err := h.timeSlotSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	active := 0
	for _, s := range slots {
		if s.IsActive {
			active++
		}
	}
	response.OK(c, gin.H{"list": slots, "active_count": active})
}

// GetTimeSlot GET /api/v1/time-slots/:id
func (h *TimeSlotHandler) GetTimeSlot(c *gin.Context) {
	id, ok := requireID(c, "id", "时间段ID不能为空")
	if !ok {
		return
	}

	slot, err := h.timeSlotSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, slot)
}

// CreateTimeSlot 新增节次；序号唯一且与已有节次时间不重叠
// POST /api/v1/time-slots
func (h *TimeSlotHandler) CreateTimeSlot(c *gin.Context) {
	var req dto.CreateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "请求体格式错误", err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.timeSlotSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Created(c, slot)
}

// UpdateTimeSlot 修改标签/时间或停用节次；停用后已排课次仍在周视图中显示
// PUT /api/v1/time-slots/:id
func (h *TimeSlotHandler) UpdateTimeSlot(c *gin.Context) {
	id, ok := requireID(c, "id", "时间段ID不能为空")
	if !ok {
		return
	}
	var req dto.UpdateTimeSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "请求体格式错误", err)
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	slot, err := h.timeSlotSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.OK(c, slot)
}

// DeleteTimeSlot 删除未被任何课次引用的节次，否则返回引用的课次列表
// DELETE /api/v1/time-slots/:id
func (h *TimeSlotHandler) DeleteTimeSlot(c *gin.Context) {
	id, ok := requireID(c, "id", "时间段ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.timeSlotSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		handleServiceError(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/model"
	"campus-planning/backend/internal/service"
	"campus-planning/backend/pkg/response"
)

// AvailabilityHandler 可用性登记 HTTP 处理器
// 路径中的 :kind 为 teacher 或 room，非法值由 Service 返回 ErrUnknownEntityKind
type AvailabilityHandler struct {
	availabilitySvc service.AvailabilityService
}

// NewAvailabilityHandler 创建 AvailabilityHandler
func NewAvailabilityHandler(availabilitySvc service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilitySvc: availabilitySvc}
}

// GetWeek 获取实体某周的可用性位图
// GET /api/v1/availability/:kind/:id?week=
func (h *AvailabilityHandler) GetWeek(c *gin.Context) {
	var q dto.WeekQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, "week 参数无效", err)
		return
	}

	week, err := h.availabilitySvc.GetWeek(c.Request.Context(), c.Param("kind"), c.Param("id"), q.Week)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, week)
}

// Check 查询单个格子是否可用
// GET /api/v1/availability/:kind/:id/check?week=&day=&slot=
func (h *AvailabilityHandler) Check(c *gin.Context) {
	var req dto.CellRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	cell, err := h.availabilitySvc.Check(c.Request.Context(), c.Param("kind"), c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, cell)
}

// Toggle 翻转单个格子的可用性
// POST /api/v1/availability/:kind/:id/toggle
func (h *AvailabilityHandler) Toggle(c *gin.Context) {
	var req dto.CellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	cell, err := h.availabilitySvc.Toggle(c.Request.Context(), c.Param("kind"), c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, cell)
}

// SetRange 批量设置周区间内的可用性
// PUT /api/v1/availability/:kind/:id/range
func (h *AvailabilityHandler) SetRange(c *gin.Context) {
	var req dto.SetRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.availabilitySvc.SetRange(c.Request.Context(), c.Param("kind"), c.Param("id"), &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportICS 上传教师外部日历，忙碌时段登记为不可用
// POST /api/v1/availability/:kind/:id/import-ics  (multipart/form-data, field="file")
func (h *AvailabilityHandler) ImportICS(c *gin.Context) {
	if c.Param("kind") != string(model.EntityTeacher) {
		response.BadRequest(c, 16003, "仅支持为教师导入日历")
		return
	}
	id, ok := requireID(c, "id", "教师ID不能为空")
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16004, "请上传 ICS 文件")
		return
	}
	defer file.Close()

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.availabilitySvc.ImportICS(c.Request.Context(), id, file, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, result)
}

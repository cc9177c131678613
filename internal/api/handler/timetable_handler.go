package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/service"
	"campus-planning/backend/pkg/response"
)

// TimetableHandler 周课表视图 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// GetWeek 周课表网格，可按班组 / 教师 / 教室过滤
// GET /api/v1/timetable/weeks/:week
func (h *TimetableHandler) GetWeek(c *gin.Context) {
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		response.BadRequest(c, 10001, "周次必须为整数")
		return
	}

	var req dto.WeekViewRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	grid, err := h.svc.Project(c.Request.Context(), week, service.WeekFilter{
		GroupID:   req.GroupID,
		TeacherID: req.TeacherID,
		RoomID:    req.RoomID,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, grid)
}

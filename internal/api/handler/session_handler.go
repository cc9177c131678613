package handler

import (
	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/service"
	"campus-planning/backend/pkg/response"
)

// SessionHandler 课次落位 HTTP 处理器
type SessionHandler struct {
	assignmentSvc service.AssignmentService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(assignmentSvc service.AssignmentService) *SessionHandler {
	return &SessionHandler{assignmentSvc: assignmentSvc}
}

// Check 评估候选课次，返回完整冲突报告，不写入
// POST /api/v1/sessions/check
func (h *SessionHandler) Check(c *gin.Context) {
	var req dto.SessionCandidate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	report, err := h.assignmentSvc.Check(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, report)
}

// CreateSession 创建课次；冲突时返回 409 与冲突报告
// POST /api/v1/sessions  (可选请求头 Idempotency-Key)
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.SessionCandidate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.assignmentSvc.Create(c.Request.Context(), &req, idemKey, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.Created(c, session)
}

// ListSessions 课次列表
// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	list, total, err := h.assignmentSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSession 课次详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := requireID(c, "id", "课次ID不能为空")
	if !ok {
		return
	}

	session, err := h.assignmentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, session)
}

// MoveSession 移动课次到新的格子（可同时换教室）
// PUT /api/v1/sessions/:id/move  (可选请求头 Idempotency-Key)
func (h *SessionHandler) MoveSession(c *gin.Context) {
	id, ok := requireID(c, "id", "课次ID不能为空")
	if !ok {
		return
	}

	var req dto.MoveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	idemKey, ok := idempotencyKey(c)
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.assignmentSvc.Move(c.Request.Context(), id, &req, idemKey, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, session)
}

// UpdateStatus 课次状态变更
// PUT /api/v1/sessions/:id/status
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	id, ok := requireID(c, "id", "课次ID不能为空")
	if !ok {
		return
	}

	var req dto.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.assignmentSvc.UpdateStatus(c.Request.Context(), id, &req, callerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OK(c, session)
}

// RemoveSession 删除课次，释放格子
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) RemoveSession(c *gin.Context) {
	id, ok := requireID(c, "id", "课次ID不能为空")
	if !ok {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.assignmentSvc.Remove(c.Request.Context(), id, callerID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// ListChangeLogs 课次变更日志
// GET /api/v1/sessions/change-logs
func (h *SessionHandler) ListChangeLogs(c *gin.Context) {
	var req dto.ChangeLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	list, total, err := h.assignmentSvc.ListChangeLogs(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

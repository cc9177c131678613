package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/service"
	pkgerrors "campus-planning/backend/pkg/errors"
	"campus-planning/backend/pkg/response"
)

// ── 业务错误码 ──
//
//	10xxx 通用   11xxx 课程   12xxx 教师   13xxx 班组   14xxx 教室
//	15xxx 时间段 16xxx 可用性 17xxx 课次   18xxx 导出

type errorMapping struct {
	err     error
	status  int
	code    int
	message string
}

var sentinelErrors = []errorMapping{
	{pkgerrors.ErrOptimisticLock, http.StatusConflict, 10008, "数据已被其他操作修改，请刷新后重试"},
	{pkgerrors.ErrLockNotAcquired, http.StatusServiceUnavailable, 10009, "排课资源繁忙，请稍后重试"},

	{service.ErrCourseNotFound, http.StatusNotFound, 11001, "课程不存在"},
	{service.ErrCourseCodeTaken, http.StatusConflict, 11002, "课程编号已存在"},

	{service.ErrTeacherNotFound, http.StatusNotFound, 12001, "教师不存在"},
	{service.ErrTeacherEmailTaken, http.StatusConflict, 12002, "该邮箱已被其他教师使用"},

	{service.ErrGroupNotFound, http.StatusNotFound, 13001, "班组不存在"},
	{service.ErrGroupNameTaken, http.StatusConflict, 13002, "班组名称已存在"},
	{service.ErrGroupCycle, http.StatusUnprocessableEntity, 13003, "班组层级不能形成环"},

	{service.ErrRoomNotFound, http.StatusNotFound, 14001, "教室不存在"},

	{service.ErrTimeSlotNotFound, http.StatusNotFound, 15001, "时间段不存在"},
	{service.ErrTimeSlotIndexTaken, http.StatusConflict, 15002, "时间段序号已存在"},

	{service.ErrUnknownEntityKind, http.StatusBadRequest, 16001, "可用性主体类型只能为 teacher 或 room"},
	{service.ErrClosureNotFound, http.StatusNotFound, 16002, "教室关闭记录不存在"},

	{service.ErrSessionNotFound, http.StatusNotFound, 17002, "课次不存在"},
	{service.ErrSessionNotMovable, http.StatusConflict, 17003, "已取消或已完成的课次不能调整"},
	{service.ErrInvalidStatusTransition, http.StatusUnprocessableEntity, 17004, "不允许的课次状态变更"},
	{service.ErrSessionCellTaken, http.StatusConflict, 17005, "该时段已被并发写入占用，请刷新后重试"},
	{service.ErrIdempotencyKeyMismatched, http.StatusConflict, 17006, "幂等键已用于其他课次"},

	{service.ErrExportGenerateFail, http.StatusInternalServerError, 18001, "生成导出文件失败"},
}

// handleServiceError 把 Service 层错误翻译为统一响应
func handleServiceError(c *gin.Context, err error) {
	var ve *service.ValidationError
	if errors.As(err, &ve) {
		response.Unprocessable(c, 10001, "参数校验失败", ve.Fields)
		return
	}

	var ce *service.ConflictError
	if errors.As(err, &ce) {
		response.Conflict(c, 17001, "排课冲突", ce.Report)
		return
	}

	var ri *service.ReferentialIntegrityError
	if errors.As(err, &ri) {
		response.Conflict(c, 10007, ri.Error(), ri.Info())
		return
	}

	for _, m := range sentinelErrors {
		if errors.Is(err, m.err) {
			response.Error(c, m.status, m.code, m.message)
			return
		}
	}

	_ = c.Error(err)
	response.InternalError(c)
}

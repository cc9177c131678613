package handler

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/dto"
	"campus-planning/backend/internal/service"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportXLSX 导出周课表（每周一个工作表）
// GET /api/v1/export/xlsx?week_from=&week_to=&group_id=
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	var req dto.ExportXLSXRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	buf, filename, err := h.exportSvc.ExportXLSX(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeXLSX)
}

// ExportICS 导出教师 / 班组 / 教室的 iCalendar 日历
// GET /api/v1/export/ics?kind=&id=&week_from=&week_to=
func (h *ExportHandler) ExportICS(c *gin.Context) {
	var req dto.ExportICSRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, "参数校验失败", err)
		return
	}

	buf, filename, err := h.exportSvc.ExportICS(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendFile(c, buf, filename, contentTypeICS)
}

// sendFile 设置下载响应头；filename* 按 RFC 5987 百分号编码（空格为 %20）
func sendFile(c *gin.Context, buf *bytes.Buffer, filename, contentType string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/pkg/response"
)

// BodyLimit 限制请求体大小
// JSON 请求使用 maxBytes；multipart 上传（ICS 导入）使用 uploadMaxBytes
func BodyLimit(maxBytes, uploadMaxBytes int64) gin.HandlerFunc {
	if uploadMaxBytes < maxBytes {
		uploadMaxBytes = maxBytes
	}

	return func(c *gin.Context) {
		if c.Request.Body != nil {
			limit := maxBytes
			if strings.HasPrefix(c.ContentType(), "multipart/") {
				limit = uploadMaxBytes
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}

		c.Next()

		if c.Writer.Written() {
			return
		}
		var tooLarge *http.MaxBytesError
		for _, e := range c.Errors {
			if errors.As(e.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}

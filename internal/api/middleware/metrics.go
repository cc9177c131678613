package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/metrics"
)

// Metrics 按方法、路由模板与状态码统计请求数
// 使用 FullPath 作为 route 标签，未匹配路由记为 "unmatched"，避免标签基数失控
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()))
	}
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/internal/api/middleware"
	"campus-planning/backend/pkg/response"
)

// IdempotencyHeader 客户端重试时携带的幂等键
const IdempotencyHeader = "Idempotency-Key"

const idempotencyKeyMaxLen = 128

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(middleware.CtxUserID)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// idempotencyKey 读取 Idempotency-Key 请求头；过长时写入 400 并返回 ok=false
func idempotencyKey(c *gin.Context) (string, bool) {
	key := c.GetHeader(IdempotencyHeader)
	if len(key) > idempotencyKeyMaxLen {
		response.BadRequest(c, 10001, "Idempotency-Key 过长")
		return "", false
	}
	return key, true
}

// requireID 读取路径参数，空值时写入 400
func requireID(c *gin.Context, name, message string) (string, bool) {
	id := c.Param(name)
	if id == "" {
		response.BadRequest(c, 10001, message)
		return "", false
	}
	return id, true
}

// bindError 请求绑定失败：400，details 中附带绑定错误原文
func bindError(c *gin.Context, message string, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, 10001, message, err.Error())
}

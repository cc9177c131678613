package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"campus-planning/backend/pkg/jwt"
	"campus-planning/backend/pkg/response"
)

// 上下文键，handler 通过 c.GetString 读取
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// JWTAuth 校验外部认证服务签发的 Access Token
// 只接受 "Bearer <token>"（scheme 不区分大小写），过期与无效分别提示
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, 10002, "缺少或无效的认证头")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			msg := "Token 无效"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token 已过期"
			}
			response.Unauthorized(c, 10002, msg)
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RoleAuth 仅放行指定角色；排课写操作挂 RoleAuth(jwt.RoleAdmin)
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, 10003, "当前角色无权修改排课数据")
			c.Abort()
			return
		}
		c.Next()
	}
}

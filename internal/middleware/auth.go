// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strings"

	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/gin-gonic/gin"
)

// RequireAuth 要求有效认证的中间件
// 研究侧接口必须携带有效的操作员访问令牌，否则返回 401
// 参与者侧接口不挂此中间件，会话通过不可枚举的 ID 定位
func RequireAuth(svc *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{
				"code":    -1,
				"message": "Missing Authorization header",
			})
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(401, gin.H{
				"code":    -1,
				"message": "Invalid Authorization header format",
			})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		facilitator, err := svc.Auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(401, gin.H{
				"code":    -1,
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set("facilitator", facilitator)
		c.Set("facilitator_id", facilitator.ID)
		c.Next()
	}
}

// GetCurrentFacilitator 从上下文获取当前操作员
func GetCurrentFacilitator(c *gin.Context) (*model.Facilitator, bool) {
	value, exists := c.Get("facilitator")
	if !exists {
		return nil, false
	}
	facilitator, ok := value.(*model.Facilitator)
	return facilitator, ok
}

// GetFacilitatorID 从上下文获取当前操作员 ID
func GetFacilitatorID(c *gin.Context) (string, bool) {
	value, exists := c.Get("facilitator_id")
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok
}

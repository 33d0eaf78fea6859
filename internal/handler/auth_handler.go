package handler

import (
	"strings"

	"github.com/ashwinyue/mnemosyne/internal/middleware"
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/ashwinyue/mnemosyne/internal/service/auth"
	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Services
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register 操作员注册
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	resp, err := h.svc.Auth.Register(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, resp)
}

// Login 操作员登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	resp, err := h.svc.Auth.Login(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	if !resp.Success {
		unauthorized(c, resp.Message)
		return
	}

	success(c, resp)
}

// RefreshToken 刷新令牌
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	accessToken, refreshToken, err := h.svc.Auth.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		unauthorized(c, "Invalid refresh token")
		return
	}

	success(c, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Logout 注销，撤销当前操作员的全部令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		unauthorized(c, "Missing or malformed Authorization header")
		return
	}

	if err := h.svc.Auth.Logout(c.Request.Context(), token); err != nil {
		unauthorized(c, "Invalid token")
		return
	}

	success(c, nil)
}

// GetCurrentFacilitator 获取当前操作员
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentFacilitator(c *gin.Context) {
	facilitator, ok := middleware.GetCurrentFacilitator(c)
	if !ok {
		unauthorized(c, "Not authenticated")
		return
	}

	success(c, facilitator.ToInfo())
}

// ChangePassword 修改密码
// POST /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	facilitatorID, ok := middleware.GetFacilitatorID(c)
	if !ok {
		unauthorized(c, "Not authenticated")
		return
	}

	if err := h.svc.Auth.ChangePassword(c.Request.Context(), facilitatorID, req.OldPassword, req.NewPassword); err != nil {
		errorResponse(c, err)
		return
	}

	success(c, nil)
}

// bearerToken 从 Authorization 头提取 Bearer 令牌
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authHeader, "Bearer "), true
}

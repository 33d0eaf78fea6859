package handler

import (
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/gin-gonic/gin"
)

// ModeHandler 对话模式处理器
type ModeHandler struct {
	svc *service.Services
}

// NewModeHandler 创建对话模式处理器
func NewModeHandler(svc *service.Services) *ModeHandler {
	return &ModeHandler{svc: svc}
}

// ListModes 列出可用对话模式
// GET /api/v1/modes
func (h *ModeHandler) ListModes(c *gin.Context) {
	success(c, gin.H{
		"items": h.svc.Modes.List(),
	})
}

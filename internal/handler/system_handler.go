package handler

import (
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/gin-gonic/gin"
)

// SystemHandler 系统处理器
type SystemHandler struct {
	svc *service.Services
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(svc *service.Services) *SystemHandler {
	return &SystemHandler{svc: svc}
}

// HealthCheck 健康检查
// GET /health
func (h *SystemHandler) HealthCheck(c *gin.Context) {
	searchStatus := "disabled"
	if h.svc.Search != nil {
		searchStatus = "enabled"
	}
	inferenceStatus := "disabled"
	if h.svc.Config.AI.APIKey != "" {
		inferenceStatus = "enabled"
	}

	c.JSON(200, gin.H{
		"status":  "ok",
		"name":    h.svc.Config.App.Name,
		"version": h.svc.Config.App.Version,
		"components": gin.H{
			"inference": inferenceStatus,
			"search":    searchStatus,
		},
	})
}

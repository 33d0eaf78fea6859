package handler

import (
	"strconv"

	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/gin-gonic/gin"
)

// SearchHandler 检索处理器
type SearchHandler struct {
	svc *service.Services
}

// NewSearchHandler 创建检索处理器
func NewSearchHandler(svc *service.Services) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// SearchTurns 检索对话轮次
// GET /api/v1/search?q=&session_id=&size=
func (h *SearchHandler) SearchTurns(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

	hits, err := h.svc.Search.Search(c.Request.Context(), c.Query("q"), c.Query("session_id"), size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"items": hits,
		"total": len(hits),
	})
}

package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/ashwinyue/mnemosyne/internal/middleware"
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/ashwinyue/mnemosyne/internal/service/transcript"
	"github.com/gin-gonic/gin"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	svc *service.Services
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(svc *service.Services) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// CreateSession 创建会话
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req transcript.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	session, err := h.svc.Transcript.CreateSession(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}

	middleware.RecordSessionStarted(session.Mode)
	created(c, session)
}

// ListSessions 列出会话
// GET /api/v1/sessions?page=&size=
func (h *SessionHandler) ListSessions(c *gin.Context) {
	page, size := getPagination(c)

	sessions, total, err := h.svc.Transcript.ListSessions(c.Request.Context(), page, size)
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"items": sessions,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

// GetSession 获取会话
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, err := h.svc.Transcript.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, session)
}

// ListTurns 列出会话轮次
// GET /api/v1/sessions/:id/turns
func (h *SessionHandler) ListTurns(c *gin.Context) {
	turns, err := h.svc.Transcript.ListTurns(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"items": turns,
		"total": len(turns),
	})
}

// ListAnchors 列出会话记忆锚点
// GET /api/v1/sessions/:id/anchors
func (h *SessionHandler) ListAnchors(c *gin.Context) {
	anchors, err := h.svc.Transcript.ListAnchors(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	success(c, gin.H{
		"items": anchors,
		"total": len(anchors),
	})
}

// ExportSession 导出会话转录
// GET /api/v1/sessions/:id/export?format=text|json|csv|markdown
func (h *SessionHandler) ExportSession(c *gin.Context) {
	export, err := h.svc.Transcript.ExportSession(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// ImportSession 从 JSON 导出件导入会话
// POST /api/v1/sessions/import
func (h *SessionHandler) ImportSession(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, "failed to read request body")
		return
	}

	session, err := h.svc.Transcript.ImportSession(c.Request.Context(), body)
	if err != nil {
		errorResponse(c, err)
		return
	}

	created(c, session)
}

// DeleteSession 删除会话及其全部轮次和锚点
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.svc.Transcript.DeleteSession(c.Request.Context(), c.Param("id")); err != nil {
		errorResponse(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

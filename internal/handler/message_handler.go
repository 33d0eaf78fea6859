package handler

import (
	"errors"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/middleware"
	"github.com/ashwinyue/mnemosyne/internal/service"
	"github.com/ashwinyue/mnemosyne/internal/service/dialogue"
	"github.com/gin-gonic/gin"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	svc *service.Services
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(svc *service.Services) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SubmitMessage 提交参与者消息
// POST /api/v1/sessions/:id/messages
func (h *MessageHandler) SubmitMessage(c *gin.Context) {
	var req dialogue.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid parameters: "+err.Error())
		return
	}

	start := time.Now()
	result, err := h.svc.Dialogue.Submit(c.Request.Context(), c.Param("id"), req.Message)
	middleware.RecordTurnSubmission(submissionOutcome(result, err), time.Since(start))

	if err != nil {
		errorResponse(c, err)
		return
	}

	if result.Ended {
		middleware.RecordSessionEnded("keyword")
	}
	success(c, result)
}

// EndSession 结束会话
// POST /api/v1/sessions/:id/end
func (h *MessageHandler) EndSession(c *gin.Context) {
	session, err := h.svc.Dialogue.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, err)
		return
	}

	middleware.RecordSessionEnded("endpoint")
	success(c, session)
}

// submissionOutcome 归类一次提交的结果标签
func submissionOutcome(result *dialogue.SubmitResult, err error) string {
	switch {
	case err == nil && result != nil && result.Ended:
		return "ended"
	case err == nil:
		return "success"
	case errors.Is(err, apperr.ErrSessionBusy):
		return "busy"
	case errors.Is(err, apperr.ErrSessionEnded), apperr.IsValidation(err):
		return "rejected"
	case apperr.IsNotFound(err):
		return "not_found"
	default:
		if ie, ok := apperr.AsInference(err); ok {
			return "inference_" + string(ie.Reason)
		}
		return "error"
	}
}

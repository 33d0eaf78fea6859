package handler

import (
	"github.com/ashwinyue/mnemosyne/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Session *SessionHandler
	Message *MessageHandler
	Search  *SearchHandler
	Mode    *ModeHandler
	Auth    *AuthHandler
	System  *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Session: NewSessionHandler(svc),
		Message: NewMessageHandler(svc),
		Search:  NewSearchHandler(svc),
		Mode:    NewModeHandler(svc),
		Auth:    NewAuthHandler(svc),
		System:  NewSystemHandler(svc),
	}
}

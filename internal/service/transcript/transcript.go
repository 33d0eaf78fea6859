// Package transcript 实现会话转录存储
// 轮次只追加，序号由仓库层在会话行锁内分配
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/repository"
	"github.com/ashwinyue/mnemosyne/internal/service/mode"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 会话生命周期轮次的固定文案
const (
	// GreetingText 新会话的开场助手轮次
	GreetingText = "Hello, I'm here to listen and support you. This is a safe space to explore whatever is on your mind. What would you like to talk about today?"

	// importedParticipantID 导入会话的参与者标识
	importedParticipantID = "imported"

	// sessionStartPrefix 系统起始轮次文案前缀
	sessionStartPrefix = "Session started: "
)

// Service 转录服务
type Service struct {
	repo    *repository.Repositories
	catalog *mode.Catalog
}

// NewService 创建转录服务
func NewService(repo *repository.Repositories, catalog *mode.Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Mode          string `json:"mode" binding:"required"`
	ParticipantID string `json:"participant_id"`
	Greet         bool   `json:"greet"`
}

// CreateSession 创建会话
// greet 置位时追加系统起始轮次和固定的助手问候轮次
func (s *Service) CreateSession(ctx context.Context, req *CreateSessionRequest) (*model.Session, error) {
	if _, err := s.catalog.Lookup(req.Mode); err != nil {
		return nil, err
	}

	participantID := req.ParticipantID
	if participantID == "" {
		participantID = "anonymous"
	}

	session := &model.Session{
		ID:            uuid.New().String(),
		Mode:          req.Mode,
		ParticipantID: participantID,
		Status:        model.SessionStatusActive,
	}

	if err := s.repo.Session.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if req.Greet {
		if _, err := s.AppendTurn(ctx, session.ID, model.RoleSystem, sessionStartPrefix+req.Mode, model.TurnKindSessionStart, nil); err != nil {
			return nil, fmt.Errorf("failed to append session start turn: %w", err)
		}
		if _, err := s.AppendTurn(ctx, session.ID, model.RoleAssistant, GreetingText, model.TurnKindGreeting, nil); err != nil {
			return nil, fmt.Errorf("failed to append greeting turn: %w", err)
		}
	}

	return session, nil
}

// GetSession 获取会话
func (s *Service) GetSession(ctx context.Context, id string) (*model.Session, error) {
	return s.findSession(id)
}

// ListSessions 列出会话，新会话在前
func (s *Service) ListSessions(ctx context.Context, page, size int) ([]*model.Session, int64, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	sessions, err := s.repo.Session.List(offset, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	total, err := s.repo.Session.Count()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return sessions, total, nil
}

// AppendTurn 追加一条轮次
// 序号在仓库层事务内分配，同一会话的并发追加互斥
func (s *Service) AppendTurn(ctx context.Context, sessionID, role, text, kind string, metadata datatypes.JSON) (*model.Turn, error) {
	if !model.ValidRole(role) {
		return nil, apperr.NewValidation("invalid turn role: %s", role)
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.NewValidation("turn text is required")
	}
	if kind == "" {
		kind = model.TurnKindDialogue
	}

	turn := &model.Turn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Text:      text,
		Kind:      kind,
		Metadata:  metadata,
	}

	if err := s.repo.Turn.Append(turn); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("session", sessionID)
		}
		return nil, fmt.Errorf("failed to append turn: %w", err)
	}

	return turn, nil
}

// ListTurns 获取会话的全部轮次，按序号升序
func (s *Service) ListTurns(ctx context.Context, sessionID string) ([]*model.Turn, error) {
	if _, err := s.findSession(sessionID); err != nil {
		return nil, err
	}

	turns, err := s.repo.Turn.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	return turns, nil
}

// RecentTurns 获取会话最近的 N 条轮次，按序号升序
// limit 为 0 时返回全部
func (s *Service) RecentTurns(ctx context.Context, sessionID string, limit int) ([]*model.Turn, error) {
	if limit <= 0 {
		return s.repo.Turn.ListBySession(sessionID)
	}
	return s.repo.Turn.RecentBySession(sessionID, limit)
}

// EndSession 结束会话并记录摘要
// 状态、结束时间和摘要只写入一次，重复结束返回错误
func (s *Service) EndSession(ctx context.Context, id, summary string) (*model.Session, error) {
	session, err := s.findSession(id)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, apperr.ErrSessionEnded
	}

	if err := s.repo.Session.End(id, summary); err != nil {
		return nil, fmt.Errorf("failed to end session: %w", err)
	}

	return s.findSession(id)
}

// DeleteSession 删除会话及其全部轮次和锚点
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.findSession(id); err != nil {
		return err
	}

	if err := s.repo.Session.Delete(id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListAnchors 获取会话的记忆锚点
func (s *Service) ListAnchors(ctx context.Context, sessionID string) ([]*model.MemoryAnchor, error) {
	if _, err := s.findSession(sessionID); err != nil {
		return nil, err
	}

	anchors, err := s.repo.Anchor.ListBySession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list anchors: %w", err)
	}
	return anchors, nil
}

// findSession 按 ID 加载会话，未找到时返回 NotFoundError
func (s *Service) findSession(id string) (*model.Session, error) {
	session, err := s.repo.Session.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("session", id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

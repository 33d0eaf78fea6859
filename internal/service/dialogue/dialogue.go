// Package dialogue 实现轮次编排
// 一条参与者消息的处理全程持有会话级互斥：
// 追加参与者轮次、调用推理、追加助手轮次，失败不回滚已落库的轮次
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/service/guard"
	"github.com/ashwinyue/mnemosyne/internal/service/inference"
	"github.com/ashwinyue/mnemosyne/internal/service/mode"
	"github.com/ashwinyue/mnemosyne/internal/service/search"
	"github.com/ashwinyue/mnemosyne/internal/service/summary"
	"github.com/ashwinyue/mnemosyne/internal/service/transcript"
	"github.com/cloudwego/eino/schema"
)

// endKeywords 参与者随时可用的结束指令
var endKeywords = []string{"//end", "//close", "//finish", "//done"}

// endedByKeywordText 关键词结束时落库的系统轮次文案
const endedByKeywordText = "Session ended by patient using keyword command"

// Service 对话编排服务
type Service struct {
	transcripts *transcript.Service
	catalog     *mode.Catalog
	guard       *guard.Guard
	ai          inference.Provider // 为 nil 时提交直接报推理鉴权错误
	summaries   *summary.Service
	searches    *search.Service // 尽力而为的轮次索引，可为 nil

	// contextTurns 构建提示词时回看的轮次数，0 表示不截断
	contextTurns int
}

// NewService 创建对话编排服务
func NewService(
	transcripts *transcript.Service,
	catalog *mode.Catalog,
	g *guard.Guard,
	ai inference.Provider,
	summaries *summary.Service,
	searches *search.Service,
	contextTurns int,
) *Service {
	return &Service{
		transcripts:  transcripts,
		catalog:      catalog,
		guard:        g,
		ai:           ai,
		summaries:    summaries,
		searches:     searches,
		contextTurns: contextTurns,
	}
}

// SubmitRequest 提交消息请求
type SubmitRequest struct {
	Message string `json:"message" binding:"required"`
}

// SubmitResult 一次提交的结果
type SubmitResult struct {
	ParticipantTurn *model.Turn `json:"participant_turn"`
	AssistantTurn   *model.Turn `json:"assistant_turn,omitempty"`
	Ended           bool        `json:"ended"`
	Summary         string      `json:"summary,omitempty"`
}

// Submit 处理一条参与者消息
// 推理失败时参与者轮次保留在转录中，错误原样上抛，由调用方决定是否重发
func (s *Service) Submit(ctx context.Context, sessionID, message string) (*SubmitResult, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return nil, apperr.NewValidation("message is required")
	}

	// 无效请求不占锁
	session, err := s.transcripts.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, apperr.ErrSessionEnded
	}

	release, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if isEndKeyword(text) {
		return s.endByKeyword(ctx, session, text)
	}

	// 窗口在追加新轮次前取，新消息单独附在末尾
	prior, err := s.transcripts.RecentTurns(ctx, sessionID, s.contextTurns)
	if err != nil {
		return nil, fmt.Errorf("failed to load context turns: %w", err)
	}

	participantTurn, err := s.transcripts.AppendTurn(ctx, sessionID, model.RoleParticipant, text, model.TurnKindDialogue, nil)
	if err != nil {
		return nil, err
	}
	s.searches.IndexTurn(ctx, session, participantTurn)

	reply, err := s.generate(ctx, session, prior, text)
	if err != nil {
		return nil, err
	}

	assistantTurn, err := s.transcripts.AppendTurn(ctx, sessionID, model.RoleAssistant, reply, model.TurnKindDialogue, nil)
	if err != nil {
		return nil, err
	}
	s.searches.IndexTurn(ctx, session, assistantTurn)

	return &SubmitResult{
		ParticipantTurn: participantTurn,
		AssistantTurn:   assistantTurn,
	}, nil
}

// End 结束会话：生成临床摘要和记忆锚点，然后落结束状态
func (s *Service) End(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.transcripts.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, apperr.ErrSessionEnded
	}

	// 结束与在途消息互斥
	release, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := s.finalize(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.transcripts.GetSession(ctx, sessionID)
}

// endByKeyword 处理结束关键词：参与者轮次照常落库，再补一条系统结束轮次
func (s *Service) endByKeyword(ctx context.Context, session *model.Session, text string) (*SubmitResult, error) {
	participantTurn, err := s.transcripts.AppendTurn(ctx, session.ID, model.RoleParticipant, text, model.TurnKindDialogue, nil)
	if err != nil {
		return nil, err
	}
	s.searches.IndexTurn(ctx, session, participantTurn)

	if _, err := s.transcripts.AppendTurn(ctx, session.ID, model.RoleSystem, endedByKeywordText, model.TurnKindSessionEnd, nil); err != nil {
		return nil, err
	}

	summaryText, err := s.finalize(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		ParticipantTurn: participantTurn,
		Ended:           true,
		Summary:         summaryText,
	}, nil
}

// finalize 生成摘要和锚点并结束会话
// 摘要和锚点失败各自降级，只有转录层的结束写入会让整个操作失败
func (s *Service) finalize(ctx context.Context, sessionID string) (string, error) {
	turns, err := s.transcripts.ListTurns(ctx, sessionID)
	if err != nil {
		return "", err
	}

	summaryText := s.summaries.Summarize(ctx, turns)
	s.summaries.ExtractAnchors(ctx, sessionID, turns)

	if _, err := s.transcripts.EndSession(ctx, sessionID, summaryText); err != nil {
		return "", err
	}
	return summaryText, nil
}

// generate 组装提示词并调用该模式的生成器
func (s *Service) generate(ctx context.Context, session *model.Session, prior []*model.Turn, text string) (string, error) {
	if s.ai == nil {
		return "", apperr.NewInference(apperr.InferenceAuth, errors.New("api key not configured"))
	}

	m, err := s.catalog.Lookup(session.Mode)
	if err != nil {
		return "", err
	}
	gen, err := s.ai.ForMode(session.Mode)
	if err != nil {
		return "", fmt.Errorf("failed to resolve generator: %w", err)
	}

	return gen.Generate(ctx, buildContext(m.SystemPrompt, prior, text))
}

// buildContext 组装推理消息
// 参与者映射为 user，助手映射为 assistant，系统轮次不参与
func buildContext(systemPrompt string, prior []*model.Turn, text string) []*schema.Message {
	messages := []*schema.Message{{Role: schema.System, Content: systemPrompt}}
	for _, turn := range prior {
		switch turn.Role {
		case model.RoleParticipant:
			messages = append(messages, &schema.Message{Role: schema.User, Content: turn.Text})
		case model.RoleAssistant:
			messages = append(messages, &schema.Message{Role: schema.Assistant, Content: turn.Text})
		}
	}
	return append(messages, &schema.Message{Role: schema.User, Content: text})
}

// isEndKeyword 判断消息是否为结束指令
func isEndKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range endKeywords {
		if lowered == keyword {
			return true
		}
	}
	return false
}

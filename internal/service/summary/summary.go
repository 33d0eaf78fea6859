// Package summary 在会话结束时生成临床摘要和记忆锚点
// 摘要和锚点都是尽力而为：推理失败回退到固定文案或跳过，结束会话永远不会因此失败
package summary

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/repository"
	"github.com/ashwinyue/mnemosyne/internal/service/inference"
	"github.com/cloudwego/eino/schema"
)

// 摘要提示词与回退文案
const (
	summarySystemPrompt = "You are a clinical supervisor reviewing therapy session notes."

	summaryUserPrompt = "Summarize this therapy session in 3-4 sentences covering: main themes, patient emotional state, any breakthroughs, and suggested next session focus.\n\nConversation:\n%s\n\nClinical Summary:"

	// EmptyFallback 没有可摘要的对话
	EmptyFallback = "No conversation to summarize."

	// FailedFallback 摘要生成失败
	FailedFallback = "Summary generation failed."
)

// Service 摘要服务
type Service struct {
	generator inference.Generator // 为 nil 时直接回退，不发起调用
	anchors   repository.AnchorRepository
}

// NewService 创建摘要服务
func NewService(generator inference.Generator, anchors repository.AnchorRepository) *Service {
	return &Service{generator: generator, anchors: anchors}
}

// Summarize 生成会话的临床摘要
// 只返回文案，不返回错误：失败回退到固定字符串
func (s *Service) Summarize(ctx context.Context, turns []*model.Turn) string {
	conversation := buildConversation(turns)
	if conversation == "" {
		return EmptyFallback
	}
	if s.generator == nil {
		return FailedFallback
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: summarySystemPrompt},
		{Role: schema.User, Content: fmt.Sprintf(summaryUserPrompt, conversation)},
	}

	text, err := s.generator.Generate(ctx, messages)
	if err != nil {
		log.Printf("Warning: summary generation failed: %v", err)
		return FailedFallback
	}
	return text
}

// buildConversation 渲染对话文本，系统轮次不参与摘要
func buildConversation(turns []*model.Turn) string {
	var lines []string
	for _, turn := range turns {
		if turn.Role == model.RoleSystem {
			continue
		}
		lines = append(lines, strings.ToUpper(turn.Role)+": "+turn.Text)
	}
	return strings.Join(lines, "\n")
}

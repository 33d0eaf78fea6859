package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
)

// 锚点提取提示词
const (
	anchorSystemPrompt = "You are a clinical supervisor extracting memory anchors from therapy session notes."

	anchorUserPrompt = "From this therapy session, extract up to 5 memory anchors: emotionally significant statements the patient made, each paired with a reframed alternative perspective.\n\nRespond with a JSON array only, no prose. Each element must have the keys \"category\", \"original_text\", \"reframed_text\" and \"emotional_valence\" (a number between -1.0 and 1.0).\n\nConversation:\n%s\n\nJSON:"
)

// anchorPayload 模型返回的单个锚点
type anchorPayload struct {
	Category         string  `json:"category"`
	OriginalText     string  `json:"original_text"`
	ReframedText     string  `json:"reframed_text"`
	EmotionalValence float64 `json:"emotional_valence"`
}

// ExtractAnchors 从会话对话中提取记忆锚点并入库
// 推理或解析失败时记录日志并返回 nil，调用方不需要处理错误
func (s *Service) ExtractAnchors(ctx context.Context, sessionID string, turns []*model.Turn) []*model.MemoryAnchor {
	if s.generator == nil || s.anchors == nil {
		return nil
	}
	conversation := buildConversation(turns)
	if conversation == "" {
		return nil
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: anchorSystemPrompt},
		{Role: schema.User, Content: fmt.Sprintf(anchorUserPrompt, conversation)},
	}

	raw, err := s.generator.Generate(ctx, messages)
	if err != nil {
		log.Printf("Warning: anchor extraction failed for session %s: %v", sessionID, err)
		return nil
	}

	payloads, err := parseAnchorPayloads(raw)
	if err != nil {
		log.Printf("Warning: failed to parse anchors for session %s: %v", sessionID, err)
		return nil
	}

	anchors := make([]*model.MemoryAnchor, 0, len(payloads))
	for _, p := range payloads {
		if strings.TrimSpace(p.OriginalText) == "" {
			continue
		}
		category := strings.TrimSpace(p.Category)
		if category == "" {
			category = "general"
		}
		anchors = append(anchors, &model.MemoryAnchor{
			ID:               uuid.New().String(),
			SessionID:        sessionID,
			Category:         category,
			OriginalText:     p.OriginalText,
			ReframedText:     p.ReframedText,
			EmotionalValence: clampValence(p.EmotionalValence),
		})
	}
	if len(anchors) == 0 {
		return nil
	}

	if err := s.anchors.CreateBatch(anchors); err != nil {
		log.Printf("Warning: failed to store anchors for session %s: %v", sessionID, err)
		return nil
	}
	return anchors
}

// parseAnchorPayloads 解析模型输出的锚点数组
func parseAnchorPayloads(raw string) ([]anchorPayload, error) {
	cleaned := repairJSONArray(raw)

	var payloads []anchorPayload
	if err := json.Unmarshal([]byte(cleaned), &payloads); err != nil {
		return nil, err
	}
	return payloads, nil
}

// repairJSONArray 修复模型输出中的 JSON 数组
// 策略：先尝试快速路径（有效 JSON 直接返回），再尝试修复
func repairJSONArray(input string) string {
	s := strings.TrimSpace(input)

	// 快速路径：已经是有效的 JSON 数组
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") && json.Valid([]byte(s)) {
		return s
	}

	// 尝试提取 JSON 数组区域
	i := strings.IndexByte(s, '[')
	j := strings.LastIndexByte(s, ']')
	if i >= 0 && j >= i {
		sub := s[i : j+1]
		if json.Valid([]byte(sub)) {
			return sub
		}
		s = sub
	}

	// 移除常见的 LLM 生成伪影
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// 检查是否有效
	if json.Valid([]byte(s)) {
		return s
	}

	// 启发式：补全缺失的方括号
	if !strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = "[" + s
	} else if strings.HasPrefix(s, "[") && !strings.HasSuffix(s, "]") {
		s = s + "]"
	}
	if json.Valid([]byte(s)) {
		return s
	}

	// 使用 jsonrepair 进行强力修复
	out, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s // 修复失败，返回原值
	}
	return out
}

// clampValence 把情绪效价收拢到 [-1, 1]
func clampValence(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

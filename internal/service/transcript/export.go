package transcript

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/service/mode"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 导出格式
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Export 导出结果
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// exportDocument JSON 导出文档，也是导入的输入格式
type exportDocument struct {
	SessionID string       `json:"session_id"`
	Mode      string       `json:"mode"`
	History   []exportTurn `json:"history"`
}

// exportTurn 导出的单条轮次
type exportTurn struct {
	Seq       int       `json:"seq"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ExportSession 导出会话转录
// 同一转录在同一格式下的输出是确定的
func (s *Service) ExportSession(ctx context.Context, sessionID, format string) (*Export, error) {
	if format == "" {
		format = FormatText
	}

	session, err := s.findSessionWithTurns(sessionID)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatText:
		return &Export{
			Filename:    fmt.Sprintf("session_%s.txt", session.ID),
			ContentType: "text/plain; charset=utf-8",
			Data:        []byte(renderText(session.Turns)),
		}, nil
	case FormatJSON:
		data, err := json.MarshalIndent(buildExportDocument(session), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal export: %w", err)
		}
		return &Export{
			Filename:    fmt.Sprintf("session_%s.json", session.ID),
			ContentType: "application/json",
			Data:        data,
		}, nil
	case FormatCSV:
		data, err := renderCSV(session.Turns)
		if err != nil {
			return nil, fmt.Errorf("failed to render csv: %w", err)
		}
		return &Export{
			Filename:    fmt.Sprintf("session_%s.csv", session.ID),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatMarkdown:
		return &Export{
			Filename:    fmt.Sprintf("session_%s.md", session.ID),
			ContentType: "text/markdown; charset=utf-8",
			Data:        []byte(renderMarkdown(session)),
		}, nil
	default:
		return nil, apperr.NewValidation("unsupported export format: %s", format)
	}
}

// ImportSession 从导出的 JSON 文档创建新会话
// 轮次按原顺序重新追加，序号重新分配
func (s *Service) ImportSession(ctx context.Context, payload []byte) (*model.Session, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, apperr.NewValidation("import payload is required")
	}

	var doc exportDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, apperr.NewValidation("invalid import payload: %v", err)
	}
	if len(doc.History) == 0 {
		return nil, apperr.NewValidation("import payload has no turns")
	}

	session := &model.Session{
		ID:            uuid.New().String(),
		Mode:          s.importMode(&doc),
		ParticipantID: importedParticipantID,
		Status:        model.SessionStatusActive,
	}
	if err := s.repo.Session.Create(session); err != nil {
		return nil, fmt.Errorf("failed to create imported session: %w", err)
	}

	for i, turn := range doc.History {
		if !model.ValidRole(turn.Role) {
			return nil, apperr.NewValidation("turn %d has invalid role: %s", i, turn.Role)
		}
		if _, err := s.AppendTurn(ctx, session.ID, turn.Role, turn.Text, turn.Kind, nil); err != nil {
			if apperr.IsValidation(err) {
				return nil, apperr.NewValidation("turn %d is invalid: %v", i, err)
			}
			return nil, err
		}
	}

	return session, nil
}

// importMode 解析导入文档的模式
// 优先取文档声明的模式；否则从系统起始轮次推断；都没有时回落到探索对话
func (s *Service) importMode(doc *exportDocument) string {
	if doc.Mode != "" {
		if _, err := s.catalog.Lookup(doc.Mode); err == nil {
			return doc.Mode
		}
	}
	if first := doc.History[0]; first.Role == model.RoleSystem && strings.HasPrefix(first.Text, sessionStartPrefix) {
		name := strings.TrimPrefix(first.Text, sessionStartPrefix)
		if _, err := s.catalog.Lookup(name); err == nil {
			return name
		}
	}
	return mode.Exploratory
}

// findSessionWithTurns 加载会话及其全部轮次
func (s *Service) findSessionWithTurns(id string) (*model.Session, error) {
	session, err := s.repo.Session.GetWithTurns(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NewNotFound("session", id)
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// buildExportDocument 组装 JSON 导出文档
func buildExportDocument(session *model.Session) *exportDocument {
	doc := &exportDocument{
		SessionID: session.ID,
		Mode:      session.Mode,
		History:   make([]exportTurn, 0, len(session.Turns)),
	}
	for _, turn := range session.Turns {
		doc.History = append(doc.History, exportTurn{
			Seq:       turn.Seq,
			Role:      turn.Role,
			Text:      turn.Text,
			Kind:      turn.Kind,
			CreatedAt: turn.CreatedAt,
		})
	}
	return doc
}

// renderText 渲染纯文本转录，每条轮次一行 "ROLE: text"
func renderText(turns []model.Turn) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(strings.ToUpper(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// ExportedPair 文本转录中的一条 (role, text) 对
type ExportedPair struct {
	Role string
	Text string
}

// transcriptRoles 文本转录可出现的角色，解析时按此顺序匹配标签
var transcriptRoles = []string{model.RoleParticipant, model.RoleAssistant, model.RoleSystem}

// ParseText 解析纯文本转录为有序的 (role, text) 对
// 不以角色标签开头的行视为上一条轮次的续行
func ParseText(data string) []ExportedPair {
	var pairs []ExportedPair
	for _, line := range strings.Split(data, "\n") {
		matched := false
		for _, role := range transcriptRoles {
			label := strings.ToUpper(role) + ": "
			if strings.HasPrefix(line, label) {
				pairs = append(pairs, ExportedPair{Role: role, Text: strings.TrimPrefix(line, label)})
				matched = true
				break
			}
		}
		if !matched && len(pairs) > 0 && line != "" {
			pairs[len(pairs)-1].Text += "\n" + line
		}
	}
	return pairs
}

// renderCSV 渲染 CSV 转录
func renderCSV(turns []model.Turn) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"seq", "role", "kind", "text", "created_at"}); err != nil {
		return nil, err
	}
	for _, turn := range turns {
		record := []string{
			strconv.Itoa(turn.Seq),
			turn.Role,
			turn.Kind,
			turn.Text,
			turn.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderMarkdown 渲染 Markdown 转录
func renderMarkdown(session *model.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session %s\n\n", session.ID)
	fmt.Fprintf(&b, "- Mode: %s\n", session.Mode)
	fmt.Fprintf(&b, "- Participant: %s\n", session.ParticipantID)
	fmt.Fprintf(&b, "- Started: %s\n", session.StartedAt.Format(time.RFC3339))
	if session.EndedAt != nil {
		fmt.Fprintf(&b, "- Ended: %s\n", session.EndedAt.Format(time.RFC3339))
	}
	if session.Summary != "" {
		fmt.Fprintf(&b, "\n## Summary\n\n%s\n", session.Summary)
	}

	b.WriteString("\n## Transcript\n")
	for _, turn := range session.Turns {
		fmt.Fprintf(&b, "\n**%s** (%d): %s\n", strings.ToUpper(turn.Role), turn.Seq, turn.Text)
	}
	return b.String()
}

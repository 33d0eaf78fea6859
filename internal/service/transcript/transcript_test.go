// Package transcript 提供转录服务单元测试
package transcript

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/repository"
	"github.com/ashwinyue/mnemosyne/internal/service/mode"
	"gorm.io/gorm"
)

// ========== Mock 仓库 ==========

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	order    []string
	turns    *mockTurnRepo

	createErr error
	listErr   error
}

func newMockSessionRepo(turns *mockTurnRepo) *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.Session), turns: turns}
}

func (m *mockSessionRepo) Create(session *model.Session) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now()
	}
	m.sessions[session.ID] = &cp
	m.order = append(m.order, session.ID)
	return nil
}

func (m *mockSessionRepo) GetByID(id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *session
	return &cp, nil
}

func (m *mockSessionRepo) GetWithTurns(id string) (*model.Session, error) {
	session, err := m.GetByID(id)
	if err != nil {
		return nil, err
	}
	if m.turns != nil {
		listed, _ := m.turns.ListBySession(id)
		session.Turns = make([]model.Turn, 0, len(listed))
		for _, turn := range listed {
			session.Turns = append(session.Turns, *turn)
		}
	}
	return session, nil
}

func (m *mockSessionRepo) List(offset, limit int) ([]*model.Session, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// 新会话在前
	var all []*model.Session
	for i := len(m.order) - 1; i >= 0; i-- {
		cp := *m.sessions[m.order[i]]
		all = append(all, &cp)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *mockSessionRepo) Count() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sessions)), nil
}

func (m *mockSessionRepo) End(id, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	session.Status = model.SessionStatusEnded
	session.EndedAt = &now
	session.Summary = summary
	return nil
}

func (m *mockSessionRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.turns != nil {
		m.turns.deleteSession(id)
	}
	return nil
}

type mockTurnRepo struct {
	mu        sync.Mutex
	bySession map[string][]*model.Turn
	sessions  *mockSessionRepo

	appendErr error
}

func newMockTurnRepo() *mockTurnRepo {
	return &mockTurnRepo{bySession: make(map[string][]*model.Turn)}
}

func (m *mockTurnRepo) Append(turn *model.Turn) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	if m.sessions != nil {
		if _, err := m.sessions.GetByID(turn.SessionID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	turn.Seq = len(m.bySession[turn.SessionID]) + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	cp := *turn
	m.bySession[turn.SessionID] = append(m.bySession[turn.SessionID], &cp)
	return nil
}

func (m *mockTurnRepo) ListBySession(sessionID string) ([]*model.Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := make([]*model.Turn, 0, len(m.bySession[sessionID]))
	for _, turn := range m.bySession[sessionID] {
		cp := *turn
		turns = append(turns, &cp)
	}
	return turns, nil
}

func (m *mockTurnRepo) RecentBySession(sessionID string, limit int) ([]*model.Turn, error) {
	turns, _ := m.ListBySession(sessionID)
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (m *mockTurnRepo) CountBySession(sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.bySession[sessionID])), nil
}

func (m *mockTurnRepo) deleteSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bySession, sessionID)
}

type mockAnchorRepo struct {
	mu        sync.Mutex
	bySession map[string][]*model.MemoryAnchor
}

func newMockAnchorRepo() *mockAnchorRepo {
	return &mockAnchorRepo{bySession: make(map[string][]*model.MemoryAnchor)}
}

func (m *mockAnchorRepo) CreateBatch(anchors []*model.MemoryAnchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, anchor := range anchors {
		cp := *anchor
		m.bySession[anchor.SessionID] = append(m.bySession[anchor.SessionID], &cp)
	}
	return nil
}

func (m *mockAnchorRepo) ListBySession(sessionID string) ([]*model.MemoryAnchor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.MemoryAnchor(nil), m.bySession[sessionID]...), nil
}

// newTestService 构建用 mock 仓库支撑的转录服务
func newTestService() (*Service, *mockSessionRepo, *mockTurnRepo, *mockAnchorRepo) {
	turns := newMockTurnRepo()
	sessions := newMockSessionRepo(turns)
	turns.sessions = sessions
	anchors := newMockAnchorRepo()

	repo := &repository.Repositories{
		Session: sessions,
		Turn:    turns,
		Anchor:  anchors,
	}
	return NewService(repo, mode.NewCatalog()), sessions, turns, anchors
}

// ========== 会话操作测试 ==========

func TestCreateSession(t *testing.T) {
	tests := []struct {
		name            string
		req             *CreateSessionRequest
		wantErr         bool
		wantParticipant string
		wantTurns       int
	}{
		{
			name:            "valid mode",
			req:             &CreateSessionRequest{Mode: mode.Exploratory},
			wantParticipant: "anonymous",
			wantTurns:       0,
		},
		{
			name:            "explicit participant",
			req:             &CreateSessionRequest{Mode: mode.CBT, ParticipantID: "p-042"},
			wantParticipant: "p-042",
			wantTurns:       0,
		},
		{
			name:            "greeting requested",
			req:             &CreateSessionRequest{Mode: mode.Trauma, Greet: true},
			wantParticipant: "anonymous",
			wantTurns:       2,
		},
		{
			name:    "unknown mode",
			req:     &CreateSessionRequest{Mode: "hypnosis"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, turns, _ := newTestService()
			ctx := context.Background()

			session, err := svc.CreateSession(ctx, tt.req)
			if tt.wantErr {
				if err == nil {
					t.Fatal("CreateSession() expected error, got nil")
				}
				if !apperr.IsValidation(err) {
					t.Errorf("CreateSession() error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSession() unexpected error: %v", err)
			}
			if session.ID == "" {
				t.Error("CreateSession() returned empty session ID")
			}
			if session.Status != model.SessionStatusActive {
				t.Errorf("CreateSession() status = %q, want %q", session.Status, model.SessionStatusActive)
			}
			if session.ParticipantID != tt.wantParticipant {
				t.Errorf("CreateSession() participant = %q, want %q", session.ParticipantID, tt.wantParticipant)
			}

			got, _ := turns.ListBySession(session.ID)
			if len(got) != tt.wantTurns {
				t.Fatalf("CreateSession() created %d turns, want %d", len(got), tt.wantTurns)
			}
			if tt.wantTurns == 2 {
				if got[0].Role != model.RoleSystem || got[0].Kind != model.TurnKindSessionStart {
					t.Errorf("first turn = (%s, %s), want (system, session_start)", got[0].Role, got[0].Kind)
				}
				if got[0].Text != "Session started: "+tt.req.Mode {
					t.Errorf("first turn text = %q", got[0].Text)
				}
				if got[1].Role != model.RoleAssistant || got[1].Kind != model.TurnKindGreeting {
					t.Errorf("second turn = (%s, %s), want (assistant, greeting)", got[1].Role, got[1].Kind)
				}
				if got[1].Text != GreetingText {
					t.Errorf("greeting text = %q", got[1].Text)
				}
			}
		})
	}
}

func TestGetSession(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory})
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	got, err := svc.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession() unexpected error: %v", err)
	}
	if got.ID != created.ID || got.Mode != mode.Exploratory {
		t.Errorf("GetSession() = %+v, want id %s mode %s", got, created.ID, mode.Exploratory)
	}

	if _, err := svc.GetSession(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("GetSession() error = %v, want not found", err)
	}
}

func TestListSessions(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory}); err != nil {
			t.Fatalf("CreateSession() unexpected error: %v", err)
		}
	}

	sessions, total, err := svc.ListSessions(ctx, 1, 3)
	if err != nil {
		t.Fatalf("ListSessions() unexpected error: %v", err)
	}
	if len(sessions) != 3 {
		t.Errorf("ListSessions() returned %d sessions, want 3", len(sessions))
	}
	if total != 5 {
		t.Errorf("ListSessions() total = %d, want 5", total)
	}

	// 页码和页大小越界时回落到默认值
	sessions, _, err = svc.ListSessions(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ListSessions() unexpected error: %v", err)
	}
	if len(sessions) != 5 {
		t.Errorf("ListSessions() with defaults returned %d sessions, want 5", len(sessions))
	}
}

// ========== 轮次操作测试 ==========

func TestAppendTurn(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory})
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	tests := []struct {
		name      string
		sessionID string
		role      string
		text      string
		kind      string
		wantSeq   int
		wantErr   func(error) bool
	}{
		{
			name:      "first participant turn",
			sessionID: session.ID,
			role:      model.RoleParticipant,
			text:      "I feel anxious today",
			wantSeq:   1,
		},
		{
			name:      "assistant reply",
			sessionID: session.ID,
			role:      model.RoleAssistant,
			text:      "Tell me more about that feeling.",
			wantSeq:   2,
		},
		{
			name:      "system note",
			sessionID: session.ID,
			role:      model.RoleSystem,
			text:      "Session ended by patient using keyword command",
			kind:      model.TurnKindSessionEnd,
			wantSeq:   3,
		},
		{
			name:      "empty text",
			sessionID: session.ID,
			role:      model.RoleParticipant,
			text:      "   ",
			wantErr:   apperr.IsValidation,
		},
		{
			name:      "bad role",
			sessionID: session.ID,
			role:      "therapist",
			text:      "hello",
			wantErr:   apperr.IsValidation,
		},
		{
			name:      "unknown session",
			sessionID: "missing",
			role:      model.RoleParticipant,
			text:      "hello",
			wantErr:   apperr.IsNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := svc.AppendTurn(ctx, tt.sessionID, tt.role, tt.text, tt.kind, nil)
			if tt.wantErr != nil {
				if err == nil || !tt.wantErr(err) {
					t.Errorf("AppendTurn() error = %v, want matching error kind", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AppendTurn() unexpected error: %v", err)
			}
			if turn.Seq != tt.wantSeq {
				t.Errorf("AppendTurn() seq = %d, want %d", turn.Seq, tt.wantSeq)
			}
			if tt.kind == "" && turn.Kind != model.TurnKindDialogue {
				t.Errorf("AppendTurn() kind = %q, want dialogue default", turn.Kind)
			}
		})
	}
}

func TestListTurns(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory})

	// 没有轮次时返回空列表
	turns, err := svc.ListTurns(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListTurns() unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("ListTurns() on fresh session returned %d turns, want 0", len(turns))
	}

	texts := []string{"one", "two", "three"}
	for _, text := range texts {
		if _, err := svc.AppendTurn(ctx, session.ID, model.RoleParticipant, text, "", nil); err != nil {
			t.Fatalf("AppendTurn() unexpected error: %v", err)
		}
	}

	turns, err = svc.ListTurns(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListTurns() unexpected error: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("ListTurns() returned %d turns, want 3", len(turns))
	}
	for i, turn := range turns {
		if turn.Seq != i+1 {
			t.Errorf("turn %d seq = %d, want %d", i, turn.Seq, i+1)
		}
		if turn.Text != texts[i] {
			t.Errorf("turn %d text = %q, want %q", i, turn.Text, texts[i])
		}
	}

	if _, err := svc.ListTurns(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("ListTurns() error = %v, want not found", err)
	}
}

func TestEndSession(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Narrative})

	ended, err := svc.EndSession(ctx, session.ID, "made progress on externalizing anxiety")
	if err != nil {
		t.Fatalf("EndSession() unexpected error: %v", err)
	}
	if ended.Status != model.SessionStatusEnded {
		t.Errorf("EndSession() status = %q, want ended", ended.Status)
	}
	if ended.EndedAt == nil {
		t.Error("EndSession() did not set EndedAt")
	}
	if ended.Summary != "made progress on externalizing anxiety" {
		t.Errorf("EndSession() summary = %q", ended.Summary)
	}

	// 重复结束
	if _, err := svc.EndSession(ctx, session.ID, "again"); !errors.Is(err, apperr.ErrSessionEnded) {
		t.Errorf("EndSession() twice error = %v, want ErrSessionEnded", err)
	}

	if _, err := svc.EndSession(ctx, "missing", ""); !apperr.IsNotFound(err) {
		t.Errorf("EndSession() error = %v, want not found", err)
	}
}

func TestDeleteSession(t *testing.T) {
	svc, _, turns, _ := newTestService()
	ctx := context.Background()

	session, _ := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory})
	if _, err := svc.AppendTurn(ctx, session.ID, model.RoleParticipant, "hello", "", nil); err != nil {
		t.Fatalf("AppendTurn() unexpected error: %v", err)
	}

	if err := svc.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession() unexpected error: %v", err)
	}
	if _, err := svc.GetSession(ctx, session.ID); !apperr.IsNotFound(err) {
		t.Errorf("GetSession() after delete error = %v, want not found", err)
	}
	if got, _ := turns.ListBySession(session.ID); len(got) != 0 {
		t.Errorf("turns remain after delete: %d", len(got))
	}

	if err := svc.DeleteSession(ctx, "missing"); !apperr.IsNotFound(err) {
		t.Errorf("DeleteSession() error = %v, want not found", err)
	}
}

func TestRepositoryFailures(t *testing.T) {
	svc, sessions, turns, _ := newTestService()
	ctx := context.Background()

	sessions.createErr = errors.New("db down")
	if _, err := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory}); err == nil {
		t.Error("CreateSession() expected error when repository fails")
	}
	sessions.createErr = nil

	session, err := svc.CreateSession(ctx, &CreateSessionRequest{Mode: mode.Exploratory})
	if err != nil {
		t.Fatalf("CreateSession() unexpected error: %v", err)
	}

	turns.appendErr = errors.New("db down")
	if _, err := svc.AppendTurn(ctx, session.ID, model.RoleParticipant, "hello", "", nil); err == nil {
		t.Error("AppendTurn() expected error when repository fails")
	}
	turns.appendErr = nil

	sessions.listErr = errors.New("db down")
	if _, _, err := svc.ListSessions(ctx, 1, 10); err == nil {
		t.Error("ListSessions() expected error when repository fails")
	}
}

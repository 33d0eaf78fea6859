// Package testutil 提供测试辅助工具
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/repository"
	"gorm.io/gorm"
)

// Store 内存数据存储
// 各仓库共享同一份数据，行为对齐 gorm 实现：
// 查询返回副本，未命中返回 gorm.ErrRecordNotFound
type Store struct {
	mu           sync.Mutex
	sessions     map[string]*model.Session
	sessionOrder []string
	turns        map[string][]*model.Turn
	anchors      map[string][]*model.MemoryAnchor
	facilitators map[string]*model.Facilitator
	tokens       map[string]*model.AuthToken
}

// NewStore 创建空的内存存储
func NewStore() *Store {
	return &Store{
		sessions:     make(map[string]*model.Session),
		turns:        make(map[string][]*model.Turn),
		anchors:      make(map[string][]*model.MemoryAnchor),
		facilitators: make(map[string]*model.Facilitator),
		tokens:       make(map[string]*model.AuthToken),
	}
}

// Repositories 返回基于本存储的仓库集合
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Session: &sessionRepo{store: s},
		Turn:    &turnRepo{store: s},
		Anchor:  &anchorRepo{store: s},
		Auth:    &authRepo{store: s},
	}
}

// TurnCount 会话当前的轮次数
func (s *Store) TurnCount(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns[sessionID])
}

// ========== SessionRepository ==========

type sessionRepo struct {
	store *Store
}

var _ repository.SessionRepository = (*sessionRepo)(nil)

func (r *sessionRepo) Create(session *model.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if session.StartedAt.IsZero() {
		session.StartedAt = time.Now()
	}
	copied := *session
	r.store.sessions[session.ID] = &copied
	r.store.sessionOrder = append(r.store.sessionOrder, session.ID)
	return nil
}

func (r *sessionRepo) GetByID(id string) (*model.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, ok := r.store.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	return &copied, nil
}

func (r *sessionRepo) GetWithTurns(id string) (*model.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, ok := r.store.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *session
	for _, turn := range sortedTurns(r.store.turns[id]) {
		copied.Turns = append(copied.Turns, *turn)
	}
	return &copied, nil
}

func (r *sessionRepo) List(offset, limit int) ([]*model.Session, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	// 新会话在前
	var sessions []*model.Session
	for i := len(r.store.sessionOrder) - 1; i >= 0; i-- {
		if session, ok := r.store.sessions[r.store.sessionOrder[i]]; ok {
			copied := *session
			sessions = append(sessions, &copied)
		}
	}

	if offset >= len(sessions) {
		return nil, nil
	}
	sessions = sessions[offset:]
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (r *sessionRepo) Count() (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.sessions)), nil
}

func (r *sessionRepo) End(id, summary string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, ok := r.store.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	session.Status = model.SessionStatusEnded
	session.EndedAt = &now
	session.Summary = summary
	return nil
}

func (r *sessionRepo) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	delete(r.store.sessions, id)
	delete(r.store.turns, id)
	delete(r.store.anchors, id)
	return nil
}

// ========== TurnRepository ==========

type turnRepo struct {
	store *Store
}

var _ repository.TurnRepository = (*turnRepo)(nil)

func (r *turnRepo) Append(turn *model.Turn) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.sessions[turn.SessionID]; !ok {
		return gorm.ErrRecordNotFound
	}
	turn.Seq = len(r.store.turns[turn.SessionID]) + 1
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	copied := *turn
	r.store.turns[turn.SessionID] = append(r.store.turns[turn.SessionID], &copied)
	return nil
}

func (r *turnRepo) ListBySession(sessionID string) ([]*model.Turn, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return copyTurns(sortedTurns(r.store.turns[sessionID])), nil
}

func (r *turnRepo) RecentBySession(sessionID string, limit int) ([]*model.Turn, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	turns := sortedTurns(r.store.turns[sessionID])
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return copyTurns(turns), nil
}

func (r *turnRepo) CountBySession(sessionID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return int64(len(r.store.turns[sessionID])), nil
}

// ========== AnchorRepository ==========

type anchorRepo struct {
	store *Store
}

var _ repository.AnchorRepository = (*anchorRepo)(nil)

func (r *anchorRepo) CreateBatch(anchors []*model.MemoryAnchor) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, anchor := range anchors {
		if anchor.CreatedAt.IsZero() {
			anchor.CreatedAt = time.Now()
		}
		copied := *anchor
		r.store.anchors[anchor.SessionID] = append(r.store.anchors[anchor.SessionID], &copied)
	}
	return nil
}

func (r *anchorRepo) ListBySession(sessionID string) ([]*model.MemoryAnchor, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	anchors := make([]*model.MemoryAnchor, 0, len(r.store.anchors[sessionID]))
	for _, anchor := range r.store.anchors[sessionID] {
		copied := *anchor
		anchors = append(anchors, &copied)
	}
	return anchors, nil
}

// ========== AuthRepository ==========

type authRepo struct {
	store *Store
}

var _ repository.AuthRepository = (*authRepo)(nil)

func (r *authRepo) CreateFacilitator(f *model.Facilitator) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	copied := *f
	r.store.facilitators[f.ID] = &copied
	return nil
}

func (r *authRepo) GetFacilitatorByID(id string) (*model.Facilitator, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	f, ok := r.store.facilitators[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f
	return &copied, nil
}

func (r *authRepo) GetFacilitatorByEmail(email string) (*model.Facilitator, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, f := range r.store.facilitators {
		if f.Email == email {
			copied := *f
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *authRepo) GetFacilitatorByUsername(username string) (*model.Facilitator, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, f := range r.store.facilitators {
		if f.Username == username {
			copied := *f
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *authRepo) UpdateFacilitator(f *model.Facilitator) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	copied := *f
	copied.UpdatedAt = time.Now()
	r.store.facilitators[f.ID] = &copied
	return nil
}

func (r *authRepo) CreateToken(token *model.AuthToken) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	copied := *token
	r.store.tokens[token.ID] = &copied
	return nil
}

// GetTokenByValue 已撤销或过期的令牌视为不存在
func (r *authRepo) GetTokenByValue(tokenValue string) (*model.AuthToken, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, token := range r.store.tokens {
		if token.Token == tokenValue && !token.IsRevoked && token.ExpiresAt.After(time.Now()) {
			copied := *token
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *authRepo) RevokeToken(tokenID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if token, ok := r.store.tokens[tokenID]; ok {
		token.IsRevoked = true
	}
	return nil
}

func (r *authRepo) RevokeTokensByFacilitatorID(facilitatorID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, token := range r.store.tokens {
		if token.FacilitatorID == facilitatorID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (r *authRepo) DeleteExpiredTokens() error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, token := range r.store.tokens {
		if token.IsRevoked || token.ExpiresAt.Before(time.Now()) {
			delete(r.store.tokens, id)
		}
	}
	return nil
}

// ========== 辅助函数 ==========

func sortedTurns(turns []*model.Turn) []*model.Turn {
	sorted := make([]*model.Turn, len(turns))
	copy(sorted, turns)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Seq < sorted[j].Seq
	})
	return sorted
}

func copyTurns(turns []*model.Turn) []*model.Turn {
	copied := make([]*model.Turn, 0, len(turns))
	for _, turn := range turns {
		c := *turn
		copied = append(copied, &c)
	}
	return copied
}

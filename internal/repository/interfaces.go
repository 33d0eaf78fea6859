// Package repository 定义数据访问接口
// 接口抽象使依赖注入和单元测试成为可能
package repository

import "github.com/ashwinyue/mnemosyne/internal/model"

// ========== SessionRepository 接口 ==========

// SessionRepository 会话数据访问接口
// 接口定义使 Service 层可以轻松 mock 进行单元测试
type SessionRepository interface {
	Create(session *model.Session) error
	GetByID(id string) (*model.Session, error)
	GetWithTurns(id string) (*model.Session, error)
	List(offset, limit int) ([]*model.Session, error)
	Count() (int64, error)
	End(id, summary string) error
	Delete(id string) error
}

// 确保 sessionRepositoryImpl 实现了接口
var _ SessionRepository = (*sessionRepositoryImpl)(nil)

// ========== TurnRepository 接口 ==========

// TurnRepository 轮次数据访问接口
// Append 负责序号分配，调用方不设置 Seq
type TurnRepository interface {
	Append(turn *model.Turn) error
	ListBySession(sessionID string) ([]*model.Turn, error)
	RecentBySession(sessionID string, limit int) ([]*model.Turn, error)
	CountBySession(sessionID string) (int64, error)
}

// 确保 turnRepositoryImpl 实现了接口
var _ TurnRepository = (*turnRepositoryImpl)(nil)

// ========== AnchorRepository 接口 ==========

// AnchorRepository 记忆锚点数据访问接口
type AnchorRepository interface {
	CreateBatch(anchors []*model.MemoryAnchor) error
	ListBySession(sessionID string) ([]*model.MemoryAnchor, error)
}

// 确保 anchorRepositoryImpl 实现了接口
var _ AnchorRepository = (*anchorRepositoryImpl)(nil)

// ========== AuthRepository 接口 ==========

// AuthRepository 认证数据访问接口
type AuthRepository interface {
	// 操作员
	CreateFacilitator(f *model.Facilitator) error
	GetFacilitatorByID(id string) (*model.Facilitator, error)
	GetFacilitatorByEmail(email string) (*model.Facilitator, error)
	GetFacilitatorByUsername(username string) (*model.Facilitator, error)
	UpdateFacilitator(f *model.Facilitator) error

	// 令牌
	CreateToken(token *model.AuthToken) error
	GetTokenByValue(tokenValue string) (*model.AuthToken, error)
	RevokeToken(tokenID string) error
	RevokeTokensByFacilitatorID(facilitatorID string) error
	DeleteExpiredTokens() error
}

// 确保 authRepositoryImpl 实现了接口
var _ AuthRepository = (*authRepositoryImpl)(nil)

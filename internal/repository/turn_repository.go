package repository

import (
	"github.com/ashwinyue/mnemosyne/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// turnRepositoryImpl 轮次数据访问实现
// 轮次只追加：没有更新操作，删除只随会话级联发生
type turnRepositoryImpl struct {
	db *gorm.DB
}

// NewTurnRepository 创建轮次仓库
func NewTurnRepository(db *gorm.DB) TurnRepository {
	return &turnRepositoryImpl{db: db}
}

// Append 追加轮次并分配序号
// 在事务内对会话行加锁后取 MAX(seq)+1，同一会话上的并发追加互斥；
// 会话不存在时返回 gorm.ErrRecordNotFound
func (r *turnRepositoryImpl) Append(turn *model.Turn) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var session model.Session
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", turn.SessionID).
			First(&session).Error; err != nil {
			return err
		}

		var maxSeq int
		if err := tx.Model(&model.Turn{}).
			Where("session_id = ?", turn.SessionID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&maxSeq).Error; err != nil {
			return err
		}

		turn.Seq = maxSeq + 1
		return tx.Create(turn).Error
	})
}

// ListBySession 获取会话的全部轮次，按序号升序
func (r *turnRepositoryImpl) ListBySession(sessionID string) ([]*model.Turn, error) {
	var turns []*model.Turn
	err := r.db.Where("session_id = ?", sessionID).Order("seq ASC").Find(&turns).Error
	return turns, err
}

// RecentBySession 获取会话最近的 N 条轮次，按序号升序返回
func (r *turnRepositoryImpl) RecentBySession(sessionID string, limit int) ([]*model.Turn, error) {
	var turns []*model.Turn
	err := r.db.Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, err
	}
	// 反转为升序
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// CountBySession 会话轮次数
func (r *turnRepositoryImpl) CountBySession(sessionID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Turn{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

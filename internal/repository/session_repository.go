package repository

import (
	"time"

	"github.com/ashwinyue/mnemosyne/internal/model"
	"gorm.io/gorm"
)

// sessionRepositoryImpl 会话数据访问实现
type sessionRepositoryImpl struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepositoryImpl{db: db}
}

// Create 创建会话
func (r *sessionRepositoryImpl) Create(session *model.Session) error {
	return r.db.Create(session).Error
}

// GetByID 获取会话
func (r *sessionRepositoryImpl) GetByID(id string) (*model.Session, error) {
	var session model.Session
	err := r.db.Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetWithTurns 获取会话及其全部轮次（按序号升序）
func (r *sessionRepositoryImpl) GetWithTurns(id string) (*model.Session, error) {
	var session model.Session
	err := r.db.Preload("Turns", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq ASC")
	}).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List 列出会话，新会话在前
func (r *sessionRepositoryImpl) List(offset, limit int) ([]*model.Session, error) {
	var sessions []*model.Session
	err := r.db.Order("started_at DESC").Offset(offset).Limit(limit).Find(&sessions).Error
	return sessions, err
}

// Count 会话总数
func (r *sessionRepositoryImpl) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.Session{}).Count(&count).Error
	return count, err
}

// End 结束会话，一次性写入结束字段
func (r *sessionRepositoryImpl) End(id, summary string) error {
	now := time.Now()
	return r.db.Model(&model.Session{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":   model.SessionStatusEnded,
		"ended_at": &now,
		"summary":  summary,
	}).Error
}

// Delete 删除会话及其全部轮次和锚点
func (r *sessionRepositoryImpl) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.Turn{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.MemoryAnchor{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Session{}, "id = ?", id).Error
	})
}

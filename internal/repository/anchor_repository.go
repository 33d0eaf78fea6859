package repository

import (
	"github.com/ashwinyue/mnemosyne/internal/model"
	"gorm.io/gorm"
)

// anchorRepositoryImpl 记忆锚点数据访问实现
type anchorRepositoryImpl struct {
	db *gorm.DB
}

// NewAnchorRepository 创建锚点仓库
func NewAnchorRepository(db *gorm.DB) AnchorRepository {
	return &anchorRepositoryImpl{db: db}
}

// CreateBatch 批量写入锚点
func (r *anchorRepositoryImpl) CreateBatch(anchors []*model.MemoryAnchor) error {
	if len(anchors) == 0 {
		return nil
	}
	return r.db.Create(anchors).Error
}

// ListBySession 获取会话的全部锚点
func (r *anchorRepositoryImpl) ListBySession(sessionID string) ([]*model.MemoryAnchor, error) {
	var anchors []*model.MemoryAnchor
	err := r.db.Where("session_id = ?", sessionID).Order("created_at ASC").Find(&anchors).Error
	return anchors, err
}

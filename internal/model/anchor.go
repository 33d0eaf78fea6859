package model

import "time"

// MemoryAnchor 记忆锚点
// 会话结束时由摘要流程从对话中提取，一次写入
type MemoryAnchor struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID         string    `gorm:"index;size:36;not null" json:"session_id"`
	Category          string    `gorm:"size:100" json:"category"`
	OriginalText      string    `gorm:"type:text" json:"original_text"`
	ReframedText      string    `gorm:"type:text" json:"reframed_text"`
	EmotionalValence  float64   `json:"emotional_valence"` // -1.0 (负面) 到 1.0 (正面)
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (MemoryAnchor) TableName() string {
	return "memory_anchors"
}

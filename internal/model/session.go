package model

import "time"

// 会话状态
const (
	SessionStatusActive = "active"
	SessionStatusEnded  = "ended"
)

// Session 研究会话
// 创建后除结束字段（Status/EndedAt/Summary，由结束操作一次性写入）外不可变
type Session struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	Mode          string     `gorm:"index;size:50;not null" json:"mode"`
	ParticipantID string     `gorm:"index;size:100;default:anonymous" json:"participant_id"`
	Status        string     `gorm:"index;size:20;default:active" json:"status"`
	Summary       string     `gorm:"type:text" json:"summary,omitempty"`
	StartedAt     time.Time  `gorm:"autoCreateTime" json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
	Turns         []Turn     `gorm:"foreignKey:SessionID" json:"turns,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string {
	return "sessions"
}

// Ended 会话是否已结束
func (s *Session) Ended() bool {
	return s.Status == SessionStatusEnded
}

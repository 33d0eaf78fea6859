package model

import (
	"time"

	"gorm.io/datatypes"
)

// 发言角色
const (
	RoleParticipant = "participant"
	RoleAssistant   = "assistant"
	RoleSystem      = "system"
)

// 轮次类型
const (
	TurnKindDialogue     = "dialogue"
	TurnKindGreeting     = "greeting"
	TurnKindSessionStart = "session_start"
	TurnKindSessionEnd   = "session_end"
)

// Turn 会话中的一条记录
// 只追加，插入后不再修改；随所属会话一起删除
type Turn struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	SessionID string         `gorm:"uniqueIndex:idx_turns_session_seq;size:36;not null" json:"session_id"`
	Seq       int            `gorm:"uniqueIndex:idx_turns_session_seq;not null" json:"seq"`
	Role      string         `gorm:"size:20;index" json:"role"` // participant, assistant, system
	Text      string         `gorm:"type:text" json:"text"`
	Kind      string         `gorm:"size:20;default:dialogue" json:"kind"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName 指定表名
func (Turn) TableName() string {
	return "turns"
}

// ValidRole 角色是否合法
func ValidRole(role string) bool {
	switch role {
	case RoleParticipant, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

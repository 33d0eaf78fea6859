package model

import "time"

// Facilitator 研究操作员账号
type Facilitator struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName 指定表名
func (Facilitator) TableName() string {
	return "facilitators"
}

// AuthToken 认证令牌
type AuthToken struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	FacilitatorID string    `gorm:"index;size:36;not null" json:"facilitator_id"`
	Token         string    `gorm:"type:text;not null" json:"-"`
	TokenType     string    `gorm:"size:50;not null" json:"token_type"` // access_token, refresh_token
	ExpiresAt     time.Time `json:"expires_at"`
	IsRevoked     bool      `gorm:"default:false" json:"is_revoked"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (AuthToken) TableName() string {
	return "auth_tokens"
}

// FacilitatorInfo 操作员信息（不含敏感数据）
type FacilitatorInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToInfo 转换为 FacilitatorInfo
func (f *Facilitator) ToInfo() *FacilitatorInfo {
	return &FacilitatorInfo{
		ID:        f.ID,
		Username:  f.Username,
		Email:     f.Email,
		IsActive:  f.IsActive,
		CreatedAt: f.CreatedAt,
	}
}

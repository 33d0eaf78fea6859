package repository

import (
	"time"

	"github.com/ashwinyue/mnemosyne/internal/model"
	"gorm.io/gorm"
)

// authRepositoryImpl 认证数据访问实现
type authRepositoryImpl struct {
	db *gorm.DB
}

// NewAuthRepository 创建认证仓库
func NewAuthRepository(db *gorm.DB) AuthRepository {
	return &authRepositoryImpl{db: db}
}

// CreateFacilitator 创建操作员
func (r *authRepositoryImpl) CreateFacilitator(f *model.Facilitator) error {
	return r.db.Create(f).Error
}

// GetFacilitatorByID 获取操作员
func (r *authRepositoryImpl) GetFacilitatorByID(id string) (*model.Facilitator, error) {
	var f model.Facilitator
	err := r.db.Where("id = ?", id).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFacilitatorByEmail 获取操作员
func (r *authRepositoryImpl) GetFacilitatorByEmail(email string) (*model.Facilitator, error) {
	var f model.Facilitator
	err := r.db.Where("email = ?", email).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// GetFacilitatorByUsername 获取操作员
func (r *authRepositoryImpl) GetFacilitatorByUsername(username string) (*model.Facilitator, error) {
	var f model.Facilitator
	err := r.db.Where("username = ?", username).First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateFacilitator 更新操作员
func (r *authRepositoryImpl) UpdateFacilitator(f *model.Facilitator) error {
	return r.db.Save(f).Error
}

// CreateToken 创建令牌
func (r *authRepositoryImpl) CreateToken(token *model.AuthToken) error {
	return r.db.Create(token).Error
}

// GetTokenByValue 获取未撤销且未过期的令牌
func (r *authRepositoryImpl) GetTokenByValue(tokenValue string) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.Where("token = ? AND is_revoked = ?", tokenValue, false).
		Where("expires_at > ?", time.Now()).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeToken 撤销令牌
func (r *authRepositoryImpl) RevokeToken(tokenID string) error {
	return r.db.Model(&model.AuthToken{}).Where("id = ?", tokenID).Update("is_revoked", true).Error
}

// RevokeTokensByFacilitatorID 撤销操作员的所有令牌
func (r *authRepositoryImpl) RevokeTokensByFacilitatorID(facilitatorID string) error {
	return r.db.Model(&model.AuthToken{}).Where("facilitator_id = ?", facilitatorID).Update("is_revoked", true).Error
}

// DeleteExpiredTokens 删除过期令牌
func (r *authRepositoryImpl) DeleteExpiredTokens() error {
	return r.db.Where("expires_at < ? OR is_revoked = ?", time.Now(), true).Delete(&model.AuthToken{}).Error
}

// Package auth 实现研究操作员的注册、登录和令牌管理
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/mnemosyne/internal/apperr"
	"github.com/ashwinyue/mnemosyne/internal/config"
	"github.com/ashwinyue/mnemosyne/internal/model"
	"github.com/ashwinyue/mnemosyne/internal/repository"
)

// resolveSecret 确定 JWT 签名密钥
// 未配置时生成随机密钥，重启后已签发的令牌全部失效
func resolveSecret(configured string) string {
	if secret := strings.TrimSpace(configured); secret != "" {
		return secret
	}

	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
	}
	return base64.StdEncoding.EncodeToString(randomBytes)
}

// Service 认证服务
type Service struct {
	repo       *repository.Repositories
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService 创建认证服务
func NewService(repo *repository.Repositories, cfg *config.Config) *Service {
	accessTTL := time.Duration(cfg.Auth.AccessTokenTTL) * time.Hour
	if accessTTL <= 0 {
		accessTTL = 24 * time.Hour
	}
	refreshTTL := time.Duration(cfg.Auth.RefreshTokenTTL) * time.Hour
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &Service{
		repo:       repo,
		secret:     resolveSecret(cfg.Auth.JWTSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message,omitempty"`
	Facilitator  *model.FacilitatorInfo `json:"facilitator,omitempty"`
	Token        string                 `json:"token,omitempty"`
	RefreshToken string                 `json:"refresh_token,omitempty"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message,omitempty"`
	Facilitator *model.FacilitatorInfo `json:"facilitator,omitempty"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// Register 注册操作员
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	// 邮箱和用户名都要求唯一
	existing, _ := s.repo.Auth.GetFacilitatorByEmail(req.Email)
	if existing != nil {
		return nil, apperr.NewValidation("facilitator with this email already exists")
	}

	existing, _ = s.repo.Auth.GetFacilitatorByUsername(req.Username)
	if existing != nil {
		return nil, apperr.NewValidation("facilitator with this username already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	facilitator := &model.Facilitator{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}

	if err := s.repo.Auth.CreateFacilitator(facilitator); err != nil {
		return nil, fmt.Errorf("failed to create facilitator: %w", err)
	}

	return &RegisterResponse{
		Success:     true,
		Message:     "Registration successful",
		Facilitator: facilitator.ToInfo(),
	}, nil
}

// Login 操作员登录
// 认证失败返回 Success=false 而非 error，避免泄露账号是否存在
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	facilitator, err := s.repo.Auth.GetFacilitatorByEmail(req.Email)
	if err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Invalid email or password",
		}, nil
	}

	if !facilitator.IsActive {
		return &LoginResponse{
			Success: false,
			Message: "Account is disabled",
		}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(facilitator.PasswordHash), []byte(req.Password)); err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Invalid email or password",
		}, nil
	}

	accessToken, refreshToken, err := s.generateTokens(ctx, facilitator)
	if err != nil {
		return &LoginResponse{
			Success: false,
			Message: "Login failed",
		}, err
	}

	// 顺带清理过期令牌
	_ = s.repo.Auth.DeleteExpiredTokens()

	return &LoginResponse{
		Success:      true,
		Message:      "Login successful",
		Facilitator:  facilitator.ToInfo(),
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// ValidateToken 验证访问令牌并返回对应操作员
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.Facilitator, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return nil, err
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return nil, errors.New("not an access token")
	}

	facilitatorID, ok := claims["facilitator_id"].(string)
	if !ok {
		return nil, errors.New("invalid facilitator ID in token")
	}

	// 签名有效仍需检查撤销状态
	tokenRecord, err := s.repo.Auth.GetTokenByValue(tokenString)
	if err != nil || tokenRecord == nil || tokenRecord.IsRevoked {
		return nil, errors.New("token is revoked")
	}

	return s.repo.Auth.GetFacilitatorByID(facilitatorID)
}

// RefreshToken 用刷新令牌换发新的令牌对
// 旧的刷新令牌立即撤销，不允许复用
func (s *Service) RefreshToken(ctx context.Context, refreshTokenString string) (string, string, error) {
	claims, err := s.parseToken(refreshTokenString)
	if err != nil {
		return "", "", errors.New("invalid refresh token")
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return "", "", errors.New("not a refresh token")
	}

	facilitatorID, ok := claims["facilitator_id"].(string)
	if !ok {
		return "", "", errors.New("invalid facilitator ID in token")
	}

	tokenRecord, err := s.repo.Auth.GetTokenByValue(refreshTokenString)
	if err != nil || tokenRecord == nil || tokenRecord.IsRevoked {
		return "", "", errors.New("refresh token is revoked")
	}

	facilitator, err := s.repo.Auth.GetFacilitatorByID(facilitatorID)
	if err != nil {
		return "", "", err
	}

	_ = s.repo.Auth.RevokeToken(tokenRecord.ID)

	return s.generateTokens(ctx, facilitator)
}

// Logout 注销：撤销该操作员的全部令牌
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	tokenRecord, err := s.repo.Auth.GetTokenByValue(tokenString)
	if err != nil {
		return errors.New("invalid token")
	}

	return s.repo.Auth.RevokeTokensByFacilitatorID(tokenRecord.FacilitatorID)
}

// ChangePassword 修改密码
func (s *Service) ChangePassword(ctx context.Context, facilitatorID, oldPassword, newPassword string) error {
	facilitator, err := s.repo.Auth.GetFacilitatorByID(facilitatorID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(facilitator.PasswordHash), []byte(oldPassword)); err != nil {
		return apperr.NewValidation("invalid old password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	facilitator.PasswordHash = string(hashedPassword)
	if err := s.repo.Auth.UpdateFacilitator(facilitator); err != nil {
		return fmt.Errorf("failed to update facilitator: %w", err)
	}

	// 改密后强制全端重新登录
	return s.repo.Auth.RevokeTokensByFacilitatorID(facilitatorID)
}

// parseToken 校验签名并提取声明
func (s *Service) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// generateTokens 生成访问令牌和刷新令牌并落库
func (s *Service) generateTokens(ctx context.Context, facilitator *model.Facilitator) (string, string, error) {
	now := time.Now()

	// jti 让同一秒内签发的令牌也互不相同
	accessClaims := jwt.MapClaims{
		"jti":            uuid.New().String(),
		"facilitator_id": facilitator.ID,
		"email":          facilitator.Email,
		"exp":            now.Add(s.accessTTL).Unix(),
		"iat":            now.Unix(),
		"type":           "access",
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.secret))
	if err != nil {
		return "", "", err
	}

	refreshClaims := jwt.MapClaims{
		"jti":            uuid.New().String(),
		"facilitator_id": facilitator.ID,
		"exp":            now.Add(s.refreshTTL).Unix(),
		"iat":            now.Unix(),
		"type":           "refresh",
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.secret))
	if err != nil {
		return "", "", err
	}

	accessRecord := &model.AuthToken{
		ID:            uuid.New().String(),
		FacilitatorID: facilitator.ID,
		Token:         accessToken,
		TokenType:     "access_token",
		ExpiresAt:     now.Add(s.accessTTL),
	}
	refreshRecord := &model.AuthToken{
		ID:            uuid.New().String(),
		FacilitatorID: facilitator.ID,
		Token:         refreshToken,
		TokenType:     "refresh_token",
		ExpiresAt:     now.Add(s.refreshTTL),
	}

	if err := s.repo.Auth.CreateToken(accessRecord); err != nil {
		return "", "", fmt.Errorf("failed to store access token: %w", err)
	}
	if err := s.repo.Auth.CreateToken(refreshRecord); err != nil {
		return "", "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

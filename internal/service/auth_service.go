package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/config"
	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 登录认证
type AuthService struct {
	userRepo *repository.UserRepository
	presence *PresenceService
	cfg      *config.Config
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo *repository.UserRepository, presence *PresenceService, cfg *config.Config) *AuthService {
	return &AuthService{userRepo: userRepo, presence: presence, cfg: cfg}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果
type LoginResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *entity.User `json:"user"`
}

// Login 用户名密码登录，签发JWT
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("用户名或密码错误")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, NewValidationError("账号已停用")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, NewValidationError("用户名或密码错误")
	}

	expire := s.cfg.JWT.AccessTokenExpire
	if expire <= 0 {
		expire = 24 * time.Hour
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"uid":      user.ID,
		"username": user.Username,
		"name":     user.FullName,
		"roles":    user.RoleCodes(),
		"procs":    user.ProcessCodes(),
		"iss":      s.cfg.JWT.Issuer,
		"iat":      now.Unix(),
		"exp":      now.Add(expire).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("签发token失败: %w", err)
	}

	if s.presence != nil {
		s.presence.Touch(ctx, user.ID)
	}

	return &LoginResult{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(expire.Seconds()),
		User:        user,
	}, nil
}

// GetUser 查询当前用户
func (s *AuthService) GetUser(ctx context.Context, id uint) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// Logout 登出，清除在线标记
func (s *AuthService) Logout(ctx context.Context, userID uint) {
	if s.presence != nil {
		s.presence.Clear(ctx, userID)
	}
}

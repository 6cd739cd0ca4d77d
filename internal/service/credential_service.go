package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/pkg/crypto"
	"github.com/zhy3800/MovieWebsite/pkg/jwt"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
)

// LoginResult 登录结果
type LoginResult struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      domain.PublicUser `json:"user"`
}

// CredentialService 凭证服务：注册、校验、签发令牌
type CredentialService struct {
	store  repository.Store
	hasher *crypto.PasswordHasher
	tokens *jwt.Manager
	log    logger.Logger
}

// NewCredentialService 创建凭证服务
func NewCredentialService(store repository.Store, hasher *crypto.PasswordHasher, tokens *jwt.Manager, log logger.Logger) *CredentialService {
	return &CredentialService{store: store, hasher: hasher, tokens: tokens, log: log}
}

// Register 注册新用户，返回用户ID
func (s *CredentialService) Register(ctx context.Context, username, email, password string) (int64, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := domain.ValidateRegistration(username, email, password); err != nil {
		return 0, err
	}

	users := s.store.Repos().Users
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return 0, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return 0, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{Username: username, Email: email, PasswordHash: hash}
	if err := users.Create(ctx, user); err != nil {
		return 0, err
	}

	s.log.Info("user registered", logger.Int64("user_id", user.ID))
	return user.ID, nil
}

// Verify 校验用户名密码
//
// 用户不存在与密码错误返回同一错误，不存在时仍执行一次哈希校验。
func (s *CredentialService) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.store.Repos().Users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, domain.ErrUserNotFound) {
		s.hasher.DummyVerify(password)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// Issue 为用户签发令牌
func (s *CredentialService) Issue(user *domain.User) (string, time.Time, error) {
	return s.tokens.GenerateToken(user.ID, user.Username)
}

// Login 校验并签发令牌
func (s *CredentialService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	user, err := s.Verify(ctx, username, password)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		metrics.RecordLogin("invalid")
		return nil, err
	case err != nil:
		metrics.RecordLogin("error")
		return nil, err
	}

	token, expiresAt, err := s.Issue(user)
	if err != nil {
		metrics.RecordLogin("error")
		return nil, fmt.Errorf("issue token: %w", err)
	}
	metrics.RecordLogin("success")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

// Authenticate 校验令牌
func (s *CredentialService) Authenticate(token string) (*jwt.Claims, error) {
	return s.tokens.ValidateToken(token)
}

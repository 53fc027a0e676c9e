package service

import (
	"context"
	"english_virtual_lab/internal/config"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore 用户表访问
type UserStore interface {
	CreateWithProfile(ctx context.Context, user *model.User, fullName string) (*model.Profile, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, hashed string) error
}

type AuthService struct {
	UserRepo UserStore
	Cfg      *config.Config
}

func NewAuthService(userRepo UserStore, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

// Register 创建用户和资料，返回登录令牌
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(password) < util.MinPasswordLength {
		return nil, "", util.ErrPasswordTooShort
	}

	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, "", util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}
	user := &model.User{Email: email, Password: string(hashedPassword)}
	if _, err := s.UserRepo.CreateWithProfile(ctx, user, strings.TrimSpace(fullName)); err != nil {
		return nil, "", err
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", util.ErrInvalidCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, viewer model.Viewer) (*model.User, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}
	user, err := s.UserRepo.FindByID(ctx, viewer.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

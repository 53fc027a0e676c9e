package service

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"english_virtual_lab/pkg/logger"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	profileLoadFailed   = "Failed to load your profile."
	profileUpdatedTitle = "Profile updated"
	profileUpdatedDesc  = "Your profile has been updated successfully."
	profileUpdateFailed = "Failed to update your profile."
	passwordShortTitle  = "Password Too Short"
	passwordShortDesc   = "Password must be at least 6 characters."
	passwordDiffTitle   = "Passwords Do Not Match"
	passwordDiffDesc    = "New password and confirmation do not match."
	passwordSavedTitle  = "Password Updated"
	passwordSavedDesc   = "Please use your new password the next time you log in."
	passwordSaveFailed  = "Failed to update your password."
)

type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
	UpdateFullName(ctx context.Context, id, fullName string) error
}

type ProfileService struct {
	ProfileRepo ProfileStore
	UserRepo    UserStore
	Results     QuizResultStore
	Notifier    Notifier
}

func NewProfileService(profileRepo ProfileStore, userRepo UserStore, results QuizResultStore, notifier Notifier) *ProfileService {
	return &ProfileService{
		ProfileRepo: profileRepo,
		UserRepo:    userRepo,
		Results:     results,
		Notifier:    notifier,
	}
}

type ProfileView struct {
	ID            string           `json:"id"`
	Email         string           `json:"email"`
	FullName      string           `json:"fullName"`
	DisplayName   string           `json:"displayName"`
	MemberSince   string           `json:"memberSince,omitempty"`
	RecentQuizzes []RecentQuizView `json:"recentQuizzes"`
}

type RecentQuizView struct {
	ID          uint   `json:"id"`
	QuizTitle   string `json:"quizTitle"`
	Score       int    `json:"score"`
	Total       int    `json:"totalQuestions"`
	Percentage  string `json:"percentage"`
	CompletedAt string `json:"completedAt"`
}

// Get 读取资料和最近测验。读取失败时返回中性视图并通知，不返回错误。
func (s *ProfileService) Get(ctx context.Context, viewer model.Viewer) (*ProfileView, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}

	view := &ProfileView{
		ID:            viewer.UserID,
		Email:         viewer.Email,
		DisplayName:   (*model.Profile)(nil).DisplayName(),
		RecentQuizzes: []RecentQuizView{},
	}

	profile, err := s.ProfileRepo.FindByID(ctx, viewer.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.readFailed(ctx, viewer, "load profile failed", err)
		return view, nil
	}
	if profile != nil {
		view.FullName = profile.FullName
		view.DisplayName = profile.DisplayName()
		if profile.Email != "" {
			view.Email = profile.Email
		}
		view.MemberSince = profile.CreatedAt.Format(util.DateFormat)
	}

	results, err := s.Results.ListRecent(ctx, viewer.UserID, util.DefaultRecentQuizLimit)
	if err != nil {
		s.readFailed(ctx, viewer, "load recent quizzes failed", err)
		return view, nil
	}
	for i := range results {
		r := &results[i]
		view.RecentQuizzes = append(view.RecentQuizzes, RecentQuizView{
			ID:          r.ID,
			QuizTitle:   r.QuizTitle,
			Score:       r.Score,
			Total:       r.TotalQuestions,
			Percentage:  FormatPercentage(r.Percentage()),
			CompletedAt: r.CompletedAt.Format(util.DateFormat),
		})
	}
	return view, nil
}

func (s *ProfileService) readFailed(ctx context.Context, viewer model.Viewer, msg string, err error) {
	logger.Log.Error(msg, zap.String("user_id", viewer.UserID), zap.Error(err))
	s.Notifier.Notify(ctx, SeverityError, errorTitle, profileLoadFailed)
}

func (s *ProfileService) UpdateFullName(ctx context.Context, viewer model.Viewer, fullName string) error {
	if !viewer.SignedIn() {
		return util.ErrUnauthorized
	}
	if err := s.ProfileRepo.UpdateFullName(ctx, viewer.UserID, strings.TrimSpace(fullName)); err != nil {
		logger.Log.Error("update profile failed", zap.String("user_id", viewer.UserID), zap.Error(err))
		s.Notifier.Notify(ctx, SeverityError, errorTitle, profileUpdateFailed)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}
	s.Notifier.Notify(ctx, SeverityInfo, profileUpdatedTitle, profileUpdatedDesc)
	return nil
}

// ChangePassword 长度和确认校验失败时不访问存储
func (s *ProfileService) ChangePassword(ctx context.Context, viewer model.Viewer, newPassword, confirmPassword string) error {
	if !viewer.SignedIn() {
		return util.ErrUnauthorized
	}
	if len(newPassword) < util.MinPasswordLength {
		s.Notifier.Notify(ctx, SeverityError, passwordShortTitle, passwordShortDesc)
		return util.ErrPasswordTooShort
	}
	if newPassword != confirmPassword {
		s.Notifier.Notify(ctx, SeverityError, passwordDiffTitle, passwordDiffDesc)
		return util.ErrPasswordMismatch
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.UserRepo.UpdatePassword(ctx, viewer.UserID, string(hashed)); err != nil {
		logger.Log.Error("update password failed", zap.String("user_id", viewer.UserID), zap.Error(err))
		s.Notifier.Notify(ctx, SeverityError, errorTitle, passwordSaveFailed)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}
	s.Notifier.Notify(ctx, SeverityInfo, passwordSavedTitle, passwordSavedDesc)
	return nil
}

package service

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/repository"
	"english_virtual_lab/internal/util"
	"english_virtual_lab/pkg/logger"
	"errors"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const dashboardLoadFailed = "Failed to load your dashboard."

type QuizStatsStore interface {
	Stats(ctx context.Context, userID string) (*repository.QuizStats, error)
}

type ProgressCounter interface {
	CountCompleted(ctx context.Context, userID string) (map[model.ContentType]int64, error)
}

type ContentCounter interface {
	Count(ct model.ContentType) int
}

type DashboardService struct {
	ProfileRepo  ProfileStore
	QuizStats    QuizStatsStore
	ProgressRepo ProgressCounter
	Catalog      ContentCounter
	Notifier     Notifier
}

func NewDashboardService(
	profileRepo ProfileStore,
	quizStats QuizStatsStore,
	progressRepo ProgressCounter,
	catalog ContentCounter,
	notifier Notifier,
) *DashboardService {
	return &DashboardService{
		ProfileRepo:  profileRepo,
		QuizStats:    quizStats,
		ProgressRepo: progressRepo,
		Catalog:      catalog,
		Notifier:     notifier,
	}
}

type Dashboard struct {
	DisplayName       string `json:"displayName"`
	TotalQuizzes      int64  `json:"totalQuizzes"`
	AverageScore      int    `json:"averageScore"`
	CompletedArticles int64  `json:"completedArticles"`
	CompletedVideos   int64  `json:"completedVideos"`
	TotalArticles     int    `json:"totalArticles"`
	TotalVideos       int    `json:"totalVideos"`
}

// GetUserDashboard 并发读取资料、测验统计和完成数。
// 任一读取失败时返回中性视图并通知。
func (s *DashboardService) GetUserDashboard(ctx context.Context, viewer model.Viewer) (*Dashboard, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}

	var (
		profile *model.Profile
		stats   *repository.QuizStats
		counts  map[model.ContentType]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.ProfileRepo.FindByID(gctx, viewer.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		profile = p
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.QuizStats.Stats(gctx, viewer.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.ProgressRepo.CountCompleted(gctx, viewer.UserID)
		return err
	})

	d := &Dashboard{
		DisplayName:   (*model.Profile)(nil).DisplayName(),
		TotalArticles: s.Catalog.Count(model.ContentArticle),
		TotalVideos:   s.Catalog.Count(model.ContentVideo),
	}

	if err := g.Wait(); err != nil {
		logger.Log.Error("load dashboard failed", zap.String("user_id", viewer.UserID), zap.Error(err))
		s.Notifier.Notify(ctx, SeverityError, errorTitle, dashboardLoadFailed)
		return d, nil
	}

	d.DisplayName = profile.DisplayName()
	d.TotalQuizzes = stats.Count
	d.AverageScore = AverageScore(stats)
	d.CompletedArticles = counts[model.ContentArticle]
	d.CompletedVideos = counts[model.ContentVideo]
	return d, nil
}

// AverageScore 平均得分率四舍五入，无记录时为 0
func AverageScore(stats *repository.QuizStats) int {
	if stats == nil || stats.Count == 0 {
		return 0
	}
	return int(math.Floor(stats.Average + 0.5))
}

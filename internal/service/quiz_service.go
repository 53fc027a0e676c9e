package service

import (
	"context"
	"encoding/json"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"english_virtual_lab/pkg/logger"
	"english_virtual_lab/pkg/monitoring"
	"english_virtual_lab/pkg/tracing"
	"errors"
	"fmt"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	quizIncompleteTitle = "Incomplete Quiz"
	quizIncompleteDesc  = "Please answer all questions before submitting."
	quizSubmittedTitle  = "Quiz Submitted!"
	quizSaveFailedDesc  = "Failed to save your quiz result. Please try again."
	attemptIDLength     = 16
)

// ErrQuizSessionLost 提交失败后无法恢复会话状态
var ErrQuizSessionLost = errors.New("quiz session could not be restored")

// QuizResultStore 测验结果持久化接口
type QuizResultStore interface {
	Insert(ctx context.Context, result *model.QuizResult) (*model.QuizResult, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]model.QuizResult, error)
}

// userLocks 按用户串行化同一尝试上的操作
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		if ul.refs--; ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

type QuizService struct {
	Engine   *QuizEngine
	Sessions QuizSessionStore
	Results  QuizResultStore
	Notifier Notifier
	// WriteTimeout 提交过程中写操作的超时，不受请求取消影响
	WriteTimeout time.Duration

	now   func() time.Time
	newID func() (string, error)
	locks userLocks
}

func NewQuizService(engine *QuizEngine, sessions QuizSessionStore, results QuizResultStore, notifier Notifier) *QuizService {
	return &QuizService{
		Engine:       engine,
		Sessions:     sessions,
		Results:      results,
		Notifier:     notifier,
		WriteTimeout: defaultWriteTimeout,
		now:          time.Now,
		newID:        func() (string, error) { return gonanoid.Nanoid(attemptIDLength) },
	}
}

// Start 开始新的尝试，丢弃旧的
func (s *QuizService) Start(ctx context.Context, viewer model.Viewer) (*QuizView, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}
	unlock := s.locks.lock(viewer.UserID)
	defer unlock()

	attemptID, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generate attempt id: %w", err)
	}
	session := s.Engine.Start(attemptID, viewer.UserID, s.now())
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.Engine.View(session), nil
}

func (s *QuizService) Current(ctx context.Context, viewer model.Viewer) (*QuizView, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}
	session, err := s.Sessions.Get(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	return s.Engine.View(session), nil
}

func (s *QuizService) SelectAnswer(ctx context.Context, viewer model.Viewer, index, option int) (*QuizView, error) {
	return s.update(ctx, viewer, func(session *QuizSession) error {
		return s.Engine.SelectAnswer(session, index, option)
	})
}

func (s *QuizService) Next(ctx context.Context, viewer model.Viewer) (*QuizView, error) {
	return s.update(ctx, viewer, s.Engine.Next)
}

func (s *QuizService) Previous(ctx context.Context, viewer model.Viewer) (*QuizView, error) {
	return s.update(ctx, viewer, s.Engine.Previous)
}

func (s *QuizService) Retake(ctx context.Context, viewer model.Viewer) (*QuizView, error) {
	return s.update(ctx, viewer, s.Engine.Retake)
}

// update 加载-修改-保存；转换失败时不保存，返回当前视图
func (s *QuizService) update(ctx context.Context, viewer model.Viewer, fn func(*QuizSession) error) (*QuizView, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}
	unlock := s.locks.lock(viewer.UserID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return s.Engine.View(session), err
	}
	session.UpdatedAt = s.now()
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return s.Engine.View(session), nil
}

// Submit 校验、计分并保存结果。
// 未答完：通知并返回 util.ErrQuizIncomplete，状态不变，不访问存储。
// 保存失败：回到最后一题，通知并返回 util.ErrQuizNotSubmitted，不自动重试。
// 会话状态写回失败时返回 ErrQuizSessionLost，不返回视图。
func (s *QuizService) Submit(ctx context.Context, viewer model.Viewer) (*QuizView, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}
	ctx, span := tracing.Tracer().Start(ctx, "QuizService.Submit")
	defer span.End()

	unlock := s.locks.lock(viewer.UserID)
	defer unlock()

	session, err := s.Sessions.Get(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("attempt_id", session.AttemptID))

	score, err := s.Engine.BeginSubmit(session)
	if errors.Is(err, util.ErrQuizIncomplete) {
		monitoring.QuizSubmissions.WithLabelValues(monitoring.ResultIncomplete).Inc()
		s.Notifier.Notify(ctx, SeverityError, quizIncompleteTitle, quizIncompleteDesc)
		return s.Engine.View(session), err
	}
	if err != nil {
		return s.Engine.View(session), err
	}

	// 客户端断开不能让尝试停在 submitting：保存状态、插入结果和后续保存共用一个不可取消的 ctx
	timeout := s.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	session.UpdatedAt = s.now()
	if err := s.Sessions.Save(writeCtx, session); err != nil {
		return nil, err
	}

	answers, err := json.Marshal(session.Answers)
	if err != nil {
		return nil, err
	}
	total := s.Engine.Quiz.Total()
	result, insertErr := s.Results.Insert(writeCtx, &model.QuizResult{
		AttemptID:      session.AttemptID,
		UserID:         viewer.UserID,
		QuizTitle:      s.Engine.Quiz.Title,
		Score:          score,
		TotalQuestions: total,
		Answers:        datatypes.JSON(answers),
	})

	if insertErr != nil {
		monitoring.QuizSubmissions.WithLabelValues(monitoring.ResultError).Inc()
		tracing.RecordError(span, insertErr)
		logger.Log.Error("save quiz result failed",
			zap.String("user_id", viewer.UserID),
			zap.String("attempt_id", session.AttemptID),
			zap.Int("score", score),
			zap.Error(insertErr))
		s.Notifier.Notify(ctx, SeverityError, errorTitle, quizSaveFailedDesc)

		if err := s.Engine.AbortSubmit(session); err != nil {
			return nil, err
		}
		session.UpdatedAt = s.now()
		if err := s.Sessions.Save(writeCtx, session); err != nil {
			logger.Log.Error("restore quiz session failed",
				zap.String("user_id", viewer.UserID),
				zap.String("attempt_id", session.AttemptID),
				zap.Error(err))
			return nil, fmt.Errorf("%w: %w: %w", util.ErrQuizNotSubmitted, ErrQuizSessionLost, err)
		}
		return s.Engine.View(session), fmt.Errorf("%w: %w", util.ErrQuizNotSubmitted, insertErr)
	}

	monitoring.QuizSubmissions.WithLabelValues(monitoring.ResultOK).Inc()
	logger.Log.Info("quiz submitted",
		zap.String("user_id", viewer.UserID),
		zap.String("attempt_id", session.AttemptID),
		zap.Int("score", score),
		zap.Int("total", total))
	s.Notifier.Notify(ctx, SeverityInfo, quizSubmittedTitle, ScoreSummary(score, total))

	if err := s.Engine.CompleteSubmit(session, result.ID); err != nil {
		return nil, err
	}
	session.UpdatedAt = s.now()
	if err := s.Sessions.Save(writeCtx, session); err != nil {
		// 结果已入库，但会话仍停在 submitting，只能重新开始
		logger.Log.Error("save quiz session failed",
			zap.String("user_id", viewer.UserID),
			zap.String("attempt_id", session.AttemptID),
			zap.Uint("result_id", result.ID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrQuizSessionLost, err)
	}
	return s.Engine.View(session), nil
}

// RecentResults 按完成时间倒序
func (s *QuizService) RecentResults(ctx context.Context, viewer model.Viewer, limit int) ([]model.QuizResult, error) {
	if !viewer.SignedIn() {
		return nil, util.ErrUnauthorized
	}
	return s.Results.ListRecent(ctx, viewer.UserID, limit)
}

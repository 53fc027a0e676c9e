package service

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"english_virtual_lab/pkg/logger"
	"english_virtual_lab/pkg/monitoring"
	"english_virtual_lab/pkg/tracing"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrLedgerClosed 账本已销毁（页面会话结束）
var ErrLedgerClosed = errors.New("progress ledger closed")

const (
	errorTitle          = "Error"
	progressLoadFailed  = "Failed to load your progress."
	progressSaveFailed  = "Failed to save your progress."
	defaultWriteTimeout = 10 * time.Second
)

// ProgressStore 进度记录的持久化接口
type ProgressStore interface {
	ListCompletedContentIDs(ctx context.Context, userID string, contentType model.ContentType) ([]string, error)
	Upsert(ctx context.Context, rec *model.ProgressRecord) error
}

type LedgerOption func(*ProgressLedger)

// WithClock 替换 last_accessed 的时间来源
func WithClock(now func() time.Time) LedgerOption {
	return func(l *ProgressLedger) { l.now = now }
}

// WithChangeHook 每次本地集合变化（乐观添加、回滚、重新加载）后回调，参数为排序后的快照
func WithChangeHook(fn func([]string)) LedgerOption {
	return func(l *ProgressLedger) { l.onChange = fn }
}

func WithWriteTimeout(d time.Duration) LedgerOption {
	return func(l *ProgressLedger) { l.writeTimeout = d }
}

// ProgressLedger 单个内容类型的页面会话：已完成内容ID集合，乐观更新并与存储同步。
//
// 标记完成分三步：先在本地添加（tentative），写入成功后确认（commit），
// 写入失败则补偿（compensate）：只有在该ID没有其他进行中的写入、
// 且从未被确认过时才从集合中移除。
type ProgressLedger struct {
	contentType  model.ContentType
	store        ProgressStore
	notifier     Notifier
	now          func() time.Time
	onChange     func([]string)
	writeTimeout time.Duration

	mu         sync.Mutex
	owner      string
	generation uint64
	completed  map[string]struct{}
	confirmed  map[string]struct{}
	pending    map[string]int
	closed     bool
}

func NewProgressLedger(contentType model.ContentType, store ProgressStore, notifier Notifier, opts ...LedgerOption) *ProgressLedger {
	l := &ProgressLedger{
		contentType:  contentType,
		store:        store,
		notifier:     notifier,
		now:          time.Now,
		writeTimeout: defaultWriteTimeout,
		completed:    make(map[string]struct{}),
		confirmed:    make(map[string]struct{}),
		pending:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *ProgressLedger) ContentType() model.ContentType {
	return l.contentType
}

// Load 从存储重建集合。查询失败时返回空集合并通知用户，不向调用方返回错误。
func (l *ProgressLedger) Load(ctx context.Context, viewer model.Viewer) []string {
	if viewer.Loading {
		return l.Snapshot()
	}

	if !viewer.SignedIn() {
		l.mu.Lock()
		if !l.closed {
			l.bindLocked("")
		}
		l.mu.Unlock()
		return []string{}
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return []string{}
	}
	l.bindLocked(viewer.UserID)
	gen := l.generation
	l.mu.Unlock()

	ids, err := l.store.ListCompletedContentIDs(ctx, viewer.UserID, l.contentType)

	l.mu.Lock()
	if l.closed || gen != l.generation {
		l.mu.Unlock()
		return []string{}
	}

	l.completed = make(map[string]struct{}, len(ids)+len(l.pending))
	l.confirmed = make(map[string]struct{}, len(ids))
	for id := range l.pending {
		l.completed[id] = struct{}{}
	}
	if err == nil {
		for _, id := range ids {
			l.completed[id] = struct{}{}
			l.confirmed[id] = struct{}{}
		}
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()
	l.emit(snapshot)

	if err != nil {
		logger.Log.Error("load progress failed",
			zap.String("user_id", viewer.UserID),
			zap.String("content_type", string(l.contentType)),
			zap.Error(err))
		l.notifier.Notify(ctx, SeverityError, errorTitle, progressLoadFailed)
		return []string{}
	}
	return snapshot
}

// MarkCompleted 乐观标记完成。匿名或身份未确定时为空操作。
// 写入失败时回滚本地状态、通知用户，并返回 util.ErrProgressNotSaved。
func (l *ProgressLedger) MarkCompleted(ctx context.Context, viewer model.Viewer, contentID string) error {
	if !viewer.SignedIn() {
		return nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "ProgressLedger.MarkCompleted")
	defer span.End()
	span.SetAttributes(
		attribute.String("content_type", string(l.contentType)),
		attribute.String("content_id", contentID),
	)

	// 1. tentative-apply
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLedgerClosed
	}
	l.bindLocked(viewer.UserID)
	gen := l.generation
	l.completed[contentID] = struct{}{}
	l.pending[contentID]++
	snapshot := l.snapshotLocked()
	l.mu.Unlock()
	l.emit(snapshot)

	rec := &model.ProgressRecord{
		UserID:       viewer.UserID,
		ContentType:  l.contentType,
		ContentID:    contentID,
		Completed:    true,
		LastAccessed: l.now(),
	}
	// 客户端断开不应中断写入，否则会产生无意义的回滚
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.writeTimeout)
	err := l.store.Upsert(writeCtx, rec)
	cancel()

	l.mu.Lock()
	if l.closed || gen != l.generation {
		// 会话已销毁或换了用户，结果直接丢弃
		l.mu.Unlock()
		if err != nil {
			return fmt.Errorf("%w: %w", util.ErrProgressNotSaved, err)
		}
		return nil
	}

	if l.pending[contentID]--; l.pending[contentID] <= 0 {
		delete(l.pending, contentID)
	}

	// 2. commit
	if err == nil {
		l.confirmed[contentID] = struct{}{}
		l.mu.Unlock()
		monitoring.ProgressWrites.WithLabelValues(string(l.contentType), monitoring.ResultOK).Inc()
		return nil
	}

	// 3. compensate
	rolledBack := false
	_, stillPending := l.pending[contentID]
	_, wasConfirmed := l.confirmed[contentID]
	if !stillPending && !wasConfirmed {
		delete(l.completed, contentID)
		rolledBack = true
	}
	snapshot = l.snapshotLocked()
	l.mu.Unlock()

	monitoring.ProgressWrites.WithLabelValues(string(l.contentType), monitoring.ResultError).Inc()
	if rolledBack {
		monitoring.ProgressRollbacks.WithLabelValues(string(l.contentType)).Inc()
		l.emit(snapshot)
	}

	tracing.RecordError(span, err)
	logger.Log.Error("save progress failed",
		zap.String("user_id", viewer.UserID),
		zap.String("content_type", string(l.contentType)),
		zap.String("content_id", contentID),
		zap.Bool("rolled_back", rolledBack),
		zap.Error(err))
	l.notifier.Notify(ctx, SeverityError, errorTitle, progressSaveFailed)
	return fmt.Errorf("%w: %w", util.ErrProgressNotSaved, err)
}

// Snapshot 当前集合（排序）
func (l *ProgressLedger) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// InFlight 进行中的写入数量
func (l *ProgressLedger) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.pending {
		n += c
	}
	return n
}

// Close 销毁会话，之后返回的写入结果不再修改状态也不再通知
func (l *ProgressLedger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *ProgressLedger) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// bindLocked 切换会话所属用户时清空全部状态
func (l *ProgressLedger) bindLocked(userID string) {
	if l.owner == userID {
		return
	}
	l.owner = userID
	l.generation++
	l.completed = make(map[string]struct{})
	l.confirmed = make(map[string]struct{})
	l.pending = make(map[string]int)
}

func (l *ProgressLedger) snapshotLocked() []string {
	out := make([]string, 0, len(l.completed))
	for id := range l.completed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (l *ProgressLedger) emit(snapshot []string) {
	if l.onChange != nil {
		l.onChange(snapshot)
	}
}

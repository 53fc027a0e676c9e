package service

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"english_virtual_lab/pkg/logger"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ContentCatalog 用于校验内容ID是否存在
type ContentCatalog interface {
	Has(ct model.ContentType, id string) bool
}

type sessionKey struct {
	userID      string
	contentType model.ContentType
}

type progressSession struct {
	ledger   *ProgressLedger
	lastUsed time.Time
}

// ProgressService 管理每个 (用户, 内容类型) 的进度账本会话
type ProgressService struct {
	Store    ProgressStore
	Catalog  ContentCatalog
	Notifier Notifier
	TTL      time.Duration
	// WriteTimeout 每次进度写入的超时，0 使用默认值
	WriteTimeout time.Duration

	now      func() time.Time
	mu       sync.Mutex
	sessions map[sessionKey]*progressSession
	stop     chan struct{}
	stopOnce sync.Once
}

func NewProgressService(store ProgressStore, catalog ContentCatalog, notifier Notifier, ttl time.Duration) *ProgressService {
	return &ProgressService{
		Store:    store,
		Catalog:  catalog,
		Notifier: notifier,
		TTL:      ttl,
		now:      time.Now,
		sessions: make(map[sessionKey]*progressSession),
		stop:     make(chan struct{}),
	}
}

// Mount 打开页面：新建账本并从存储加载，替换并关闭旧会话
func (s *ProgressService) Mount(ctx context.Context, viewer model.Viewer, ct model.ContentType) []string {
	if !viewer.SignedIn() {
		return []string{}
	}

	ledger := s.newLedger(ct)
	key := sessionKey{viewer.UserID, ct}

	s.mu.Lock()
	if old, ok := s.sessions[key]; ok {
		old.ledger.Close()
	}
	s.sessions[key] = &progressSession{ledger: ledger, lastUsed: s.now()}
	s.mu.Unlock()

	return ledger.Load(ctx, viewer)
}

// MarkCompleted 标记内容完成，返回操作后的已完成集合。
// 未知内容返回 util.ErrContentNotFound，不访问存储。
func (s *ProgressService) MarkCompleted(ctx context.Context, viewer model.Viewer, ct model.ContentType, contentID string) ([]string, error) {
	if !s.Catalog.Has(ct, contentID) {
		return nil, util.ErrContentNotFound
	}
	if !viewer.SignedIn() {
		return []string{}, nil
	}

	ledger := s.ledgerFor(ctx, viewer, ct)
	err := ledger.MarkCompleted(ctx, viewer, contentID)
	if errors.Is(err, ErrLedgerClosed) {
		// 会话恰好被驱逐或重新挂载，换新会话重试一次
		ledger = s.ledgerFor(ctx, viewer, ct)
		err = ledger.MarkCompleted(ctx, viewer, contentID)
	}
	return ledger.Snapshot(), err
}

// ledgerFor 返回已挂载的账本，没有则先挂载
func (s *ProgressService) ledgerFor(ctx context.Context, viewer model.Viewer, ct model.ContentType) *ProgressLedger {
	key := sessionKey{viewer.UserID, ct}

	s.mu.Lock()
	if sess, ok := s.sessions[key]; ok && !sess.ledger.Closed() {
		sess.lastUsed = s.now()
		s.mu.Unlock()
		return sess.ledger
	}
	ledger := s.newLedger(ct)
	s.sessions[key] = &progressSession{ledger: ledger, lastUsed: s.now()}
	s.mu.Unlock()

	ledger.Load(ctx, viewer)
	return ledger
}

func (s *ProgressService) newLedger(ct model.ContentType) *ProgressLedger {
	opts := []LedgerOption{WithClock(s.now)}
	if s.WriteTimeout > 0 {
		opts = append(opts, WithWriteTimeout(s.WriteTimeout))
	}
	return NewProgressLedger(ct, s.Store, s.Notifier, opts...)
}

// Sessions 当前挂载的会话数量
func (s *ProgressService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// StartJanitor 定期关闭空闲超过 TTL 的会话
func (s *ProgressService) StartJanitor(interval time.Duration) {
	if s.TTL <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.evictIdle(); n > 0 {
					logger.Log.Debug("evicted idle progress sessions", zap.Int("count", n))
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *ProgressService) evictIdle() int {
	cutoff := s.now().Add(-s.TTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, sess := range s.sessions {
		// 仍有写入进行中的会话不驱逐，否则写入结果会被丢弃
		if sess.lastUsed.Before(cutoff) && sess.ledger.InFlight() == 0 {
			sess.ledger.Close()
			delete(s.sessions, key)
			n++
		}
	}
	return n
}

// Stop 停止清理协程并关闭所有会话
func (s *ProgressService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.mu.Lock()
		defer s.mu.Unlock()
		for key, sess := range s.sessions {
			sess.ledger.Close()
			delete(s.sessions, key)
		}
	})
}

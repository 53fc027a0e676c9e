package service

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/repository"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errStoreDown = errors.New("store unavailable")

// recordingNotifier 记录所有通知
type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, severity Severity, title, description string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, Notification{Severity: severity, Title: title, Description: description})
}

func (n *recordingNotifier) all() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

type progressKey struct {
	userID      string
	contentType model.ContentType
	contentID   string
}

// fakeProgressStore 内存实现，按组合键 upsert；可注入错误或阻塞写入
type fakeProgressStore struct {
	mu       sync.Mutex
	rows     map[progressKey]model.ProgressRecord
	listErr  error
	upsertFn func(ctx context.Context, rec *model.ProgressRecord) error
	lists    int
	upserts  int
}

func newFakeProgressStore() *fakeProgressStore {
	return &fakeProgressStore{rows: make(map[progressKey]model.ProgressRecord)}
}

func (s *fakeProgressStore) ListCompletedContentIDs(_ context.Context, userID string, ct model.ContentType) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var ids []string
	for k, row := range s.rows {
		if k.userID == userID && k.contentType == ct && row.Completed {
			ids = append(ids, k.contentID)
		}
	}
	return ids, nil
}

func (s *fakeProgressStore) Upsert(ctx context.Context, rec *model.ProgressRecord) error {
	s.mu.Lock()
	s.upserts++
	fn := s.upsertFn
	s.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, rec); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[progressKey{rec.UserID, rec.ContentType, rec.ContentID}] = *rec
	return nil
}

func (s *fakeProgressStore) count() (lists, upserts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists, s.upserts
}

func (s *fakeProgressStore) row(userID string, ct model.ContentType, id string) (model.ProgressRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[progressKey{userID, ct, id}]
	return r, ok
}

func (s *fakeProgressStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// fakeQuizResultStore 内存结果表，insertErr 非空时插入失败；
// beforeInsert 在插入前回调（例如模拟客户端断开），ctx 已取消时与数据库驱动一样返回错误
type fakeQuizResultStore struct {
	mu           sync.Mutex
	results      []model.QuizResult
	insertErr    error
	inserts      int
	beforeInsert func()
}

func (s *fakeQuizResultStore) Insert(ctx context.Context, result *model.QuizResult) (*model.QuizResult, error) {
	if s.beforeInsert != nil {
		s.beforeInsert()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	if err := result.Validate(); err != nil {
		return nil, err
	}
	result.ID = uint(len(s.results) + 1)
	s.results = append(s.results, *result)
	return result, nil
}

func (s *fakeQuizResultStore) ListRecent(_ context.Context, userID string, limit int) ([]model.QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.QuizResult
	for i := len(s.results) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if s.results[i].UserID == userID {
			out = append(out, s.results[i])
		}
	}
	return out, nil
}

// ctxSessionStore 与 redis 客户端一样，ctx 取消后拒绝读写；
// failSavesFrom > 0 时从第 N 次 Save 起返回 errStoreDown
type ctxSessionStore struct {
	*MemoryQuizSessionStore
	mu            sync.Mutex
	saves         int
	failSavesFrom int
}

func newCtxSessionStore() *ctxSessionStore {
	return &ctxSessionStore{MemoryQuizSessionStore: NewMemoryQuizSessionStore(time.Hour)}
}

func (s *ctxSessionStore) Get(ctx context.Context, userID string) (*QuizSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MemoryQuizSessionStore.Get(ctx, userID)
}

func (s *ctxSessionStore) Save(ctx context.Context, session *QuizSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.saves++
	fail := s.failSavesFrom > 0 && s.saves >= s.failSavesFrom
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryQuizSessionStore.Save(ctx, session)
}

func (s *ctxSessionStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// fakeUserStore 用户与资料的内存实现
type fakeUserStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	profiles map[string]*model.Profile
	findErr  error
	writeErr error
	updates  int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[string]*model.User),
		profiles: make(map[string]*model.Profile),
	}
}

func (s *fakeUserStore) CreateWithProfile(_ context.Context, user *model.User, fullName string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return nil, s.writeErr
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	u := *user
	s.users[user.ID] = &u
	p := &model.Profile{ID: user.ID, FullName: fullName, Email: user.Email, CreatedAt: time.Now()}
	s.profiles[user.ID] = p
	return p, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, id, hashed string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	if s.writeErr != nil {
		return s.writeErr
	}
	u, ok := s.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Password = hashed
	return nil
}

// fakeProfileStore 复用 fakeUserStore 中的资料
type fakeProfileStore struct {
	users   *fakeUserStore
	findErr error
}

func (s *fakeProfileStore) FindByID(_ context.Context, id string) (*model.Profile, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	p, ok := s.users.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeProfileStore) UpdateFullName(_ context.Context, id, fullName string) error {
	s.users.mu.Lock()
	defer s.users.mu.Unlock()
	if s.users.writeErr != nil {
		return s.users.writeErr
	}
	p, ok := s.users.profiles[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.FullName = fullName
	return nil
}

type fakeQuizStats struct {
	stats *repository.QuizStats
	err   error
}

func (s *fakeQuizStats) Stats(context.Context, string) (*repository.QuizStats, error) {
	return s.stats, s.err
}

type fakeProgressCounter struct {
	counts map[model.ContentType]int64
	err    error
}

func (c *fakeProgressCounter) CountCompleted(context.Context, string) (map[model.ContentType]int64, error) {
	return c.counts, c.err
}

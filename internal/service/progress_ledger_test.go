package service

import (
	"context"
	"english_virtual_lab/internal/model"
	"english_virtual_lab/internal/util"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var learner = model.NewViewer("user-1", "learner@example.com")

func completedIn(l *ProgressLedger, id string) bool {
	return slices.Contains(l.Snapshot(), id)
}

func seed(store *fakeProgressStore, userID string, ct model.ContentType, ids ...string) {
	for _, id := range ids {
		store.rows[progressKey{userID, ct, id}] = model.ProgressRecord{
			UserID: userID, ContentType: ct, ContentID: id, Completed: true, LastAccessed: time.Now(),
		}
	}
}

func TestLedgerLoad_ReturnsCompletedIDs(t *testing.T) {
	store := newFakeProgressStore()
	seed(store, learner.UserID, model.ContentArticle, "1", "4")
	seed(store, learner.UserID, model.ContentVideo, "2")
	seed(store, "someone-else", model.ContentArticle, "6")

	l := NewProgressLedger(model.ContentArticle, store, &recordingNotifier{})
	assert.Equal(t, []string{"1", "4"}, l.Load(context.Background(), learner))
	assert.True(t, completedIn(l, "4"))
	assert.False(t, completedIn(l, "2"))
}

func TestLedgerLoad_FailsOpen(t *testing.T) {
	store := newFakeProgressStore()
	store.listErr = errStoreDown
	n := &recordingNotifier{}

	l := NewProgressLedger(model.ContentVideo, store, n)
	ids := l.Load(context.Background(), learner)

	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.Equal(t, []Notification{{SeverityError, "Error", "Failed to load your progress."}}, n.all())
	lists, _ := store.count()
	assert.Equal(t, 1, lists, "no automatic retry")
}

func TestLedgerLoad_DefersWhileIdentityLoading(t *testing.T) {
	store := newFakeProgressStore()
	l := NewProgressLedger(model.ContentArticle, store, &recordingNotifier{})

	assert.Empty(t, l.Load(context.Background(), model.Viewer{Loading: true}))
	assert.Empty(t, l.Load(context.Background(), model.Anonymous))

	lists, _ := store.count()
	assert.Equal(t, 0, lists)
}

func TestLedgerMarkCompleted_AppliesBeforeWrite(t *testing.T) {
	store := newFakeProgressStore()
	var l *ProgressLedger
	var seenDuringWrite bool
	store.upsertFn = func(_ context.Context, rec *model.ProgressRecord) error {
		seenDuringWrite = completedIn(l, rec.ContentID)
		return nil
	}
	var changes [][]string
	l = NewProgressLedger(model.ContentArticle, store, &recordingNotifier{},
		WithChangeHook(func(ids []string) { changes = append(changes, ids) }))

	require.NoError(t, l.MarkCompleted(context.Background(), learner, "2"))

	assert.True(t, seenDuringWrite)
	assert.True(t, completedIn(l, "2"))
	assert.Equal(t, [][]string{{"2"}}, changes)
	assert.Equal(t, 0, l.InFlight())
}

func TestLedgerMarkCompleted_IdempotentUpsert(t *testing.T) {
	store := newFakeProgressStore()
	first := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	second := first.Add(5 * time.Minute)
	clock := []time.Time{first, second}
	l := NewProgressLedger(model.ContentArticle, store, &recordingNotifier{},
		WithClock(func() time.Time {
			now := clock[0]
			clock = clock[1:]
			return now
		}))

	require.NoError(t, l.MarkCompleted(context.Background(), learner, "3"))
	require.NoError(t, l.MarkCompleted(context.Background(), learner, "3"))

	assert.Equal(t, 1, store.size())
	row, ok := store.row(learner.UserID, model.ContentArticle, "3")
	require.True(t, ok)
	assert.True(t, row.Completed)
	assert.Equal(t, second, row.LastAccessed)
	assert.Equal(t, []string{"3"}, l.Snapshot())
}

func TestLedgerMarkCompleted_RollsBackOnFailure(t *testing.T) {
	store := newFakeProgressStore()
	seed(store, learner.UserID, model.ContentArticle, "1")
	store.upsertFn = func(context.Context, *model.ProgressRecord) error { return errStoreDown }
	n := &recordingNotifier{}
	var changes [][]string
	l := NewProgressLedger(model.ContentArticle, store, n,
		WithChangeHook(func(ids []string) { changes = append(changes, ids) }))
	l.Load(context.Background(), learner)
	before := l.Snapshot()
	changes = nil

	err := l.MarkCompleted(context.Background(), learner, "5")

	assert.True(t, errors.Is(err, util.ErrProgressNotSaved))
	assert.True(t, errors.Is(err, errStoreDown))
	assert.Equal(t, before, l.Snapshot())
	assert.Equal(t, [][]string{{"1", "5"}, {"1"}}, changes)
	assert.Equal(t, []Notification{{SeverityError, "Error", "Failed to save your progress."}}, n.all())
}

func TestLedgerMarkCompleted_FailureKeepsConfirmedID(t *testing.T) {
	store := newFakeProgressStore()
	seed(store, learner.UserID, model.ContentVideo, "2")
	l := NewProgressLedger(model.ContentVideo, store, &recordingNotifier{})
	l.Load(context.Background(), learner)

	store.upsertFn = func(context.Context, *model.ProgressRecord) error { return errStoreDown }
	err := l.MarkCompleted(context.Background(), learner, "2")

	assert.Error(t, err)
	assert.True(t, completedIn(l, "2"), "already stored as completed, nothing to roll back")
}

func TestLedgerMarkCompleted_AnonymousIsNoop(t *testing.T) {
	store := newFakeProgressStore()
	n := &recordingNotifier{}
	l := NewProgressLedger(model.ContentArticle, store, n)

	assert.NoError(t, l.MarkCompleted(context.Background(), model.Anonymous, "1"))
	assert.NoError(t, l.MarkCompleted(context.Background(), model.Viewer{UserID: "u", Loading: true}, "1"))

	_, upserts := store.count()
	assert.Equal(t, 0, upserts)
	assert.Empty(t, l.Snapshot())
	assert.Empty(t, n.all())
}

// 同一内容的两次写入：第一次挂起后成功，第二次先失败。
// 第二次的回滚不能移除第一次仍在进行的乐观状态。
func TestLedgerMarkCompleted_RollbackWaitsForPendingSameID(t *testing.T) {
	store := newFakeProgressStore()
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	store.upsertFn = func(context.Context, *model.ProgressRecord) error {
		mu.Lock()
		calls++
		call := calls
		mu.Unlock()
		if call == 1 {
			close(started)
			<-release
			return nil
		}
		return errStoreDown
	}
	l := NewProgressLedger(model.ContentArticle, store, &recordingNotifier{})

	done := make(chan error, 1)
	go func() { done <- l.MarkCompleted(context.Background(), learner, "4") }()
	<-started

	err := l.MarkCompleted(context.Background(), learner, "4")
	assert.Error(t, err)
	assert.True(t, completedIn(l, "4"), "first write still in flight")
	assert.Equal(t, 1, l.InFlight())

	close(release)
	require.NoError(t, <-done)
	assert.True(t, completedIn(l, "4"))
	assert.Equal(t, 0, l.InFlight())
}

func TestLedgerMarkCompleted_BothWritesFailRemovesID(t *testing.T) {
	store := newFakeProgressStore()
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	store.upsertFn = func(context.Context, *model.ProgressRecord) error {
		first := false
		once.Do(func() { first = true })
		if first {
			close(started)
			<-release
		}
		return errStoreDown
	}
	l := NewProgressLedger(model.ContentArticle, store, &recordingNotifier{})

	done := make(chan error, 1)
	go func() { done <- l.MarkCompleted(context.Background(), learner, "4") }()
	<-started

	assert.Error(t, l.MarkCompleted(context.Background(), learner, "4"))
	assert.True(t, completedIn(l, "4"))

	close(release)
	assert.Error(t, <-done)
	assert.False(t, completedIn(l, "4"))
}

func TestLedgerMarkCompleted_DifferentItemsAreIndependent(t *testing.T) {
	store := newFakeProgressStore()
	store.upsertFn = func(_ context.Context, rec *model.ProgressRecord) error {
		if rec.ContentID == "bad" {
			return errStoreDown
		}
		return nil
	}
	l := NewProgressLedger(model.ContentVideo, store, &recordingNotifier{})

	var wg sync.WaitGroup
	for _, id := range []string{"1", "bad", "3"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			l.MarkCompleted(context.Background(), learner, id)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, []string{"1", "3"}, l.Snapshot())
}

func TestLedgerClose_DiscardsInFlightResult(t *testing.T) {
	store := newFakeProgressStore()
	release := make(chan struct{})
	started := make(chan struct{})
	store.upsertFn = func(context.Context, *model.ProgressRecord) error {
		close(started)
		<-release
		return errStoreDown
	}
	n := &recordingNotifier{}
	l := NewProgressLedger(model.ContentArticle, store, n)

	done := make(chan error, 1)
	go func() { done <- l.MarkCompleted(context.Background(), learner, "1") }()
	<-started
	l.Close()
	close(release)

	assert.Error(t, <-done)
	assert.Empty(t, n.all())
	assert.ErrorIs(t, l.MarkCompleted(context.Background(), learner, "2"), ErrLedgerClosed)
}

func TestLedger_SwitchingUserResetsState(t *testing.T) {
	store := newFakeProgressStore()
	seed(store, learner.UserID, model.ContentArticle, "1")
	l := NewProgressLedger(model.ContentArticle, store, &recordingNotifier{})
	l.Load(context.Background(), learner)
	require.True(t, completedIn(l, "1"))

	other := model.NewViewer("user-2", "other@example.com")
	assert.Empty(t, l.Load(context.Background(), other))
	assert.False(t, completedIn(l, "1"))
}

func TestLedgerMarkCompleted_WriteTimeout(t *testing.T) {
	store := newFakeProgressStore()
	store.upsertFn = func(ctx context.Context, _ *model.ProgressRecord) error {
		<-ctx.Done()
		return ctx.Err()
	}
	n := &recordingNotifier{}
	l := NewProgressLedger(model.ContentVideo, store, n, WithWriteTimeout(20*time.Millisecond))

	// 请求 ctx 不带截止时间，写入由账本自己的超时结束
	err := l.MarkCompleted(context.Background(), learner, "5")

	assert.ErrorIs(t, err, util.ErrProgressNotSaved)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, completedIn(l, "5"))
	assert.Len(t, n.all(), 1)
}

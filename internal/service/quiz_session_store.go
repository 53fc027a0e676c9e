package service

import (
	"context"
	"encoding/json"
	"english_virtual_lab/internal/util"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// QuizSessionStore 保存每个用户当前的测验尝试，不存在时返回 util.ErrNoActiveAttempt
type QuizSessionStore interface {
	Get(ctx context.Context, userID string) (*QuizSession, error)
	Save(ctx context.Context, s *QuizSession) error
	Delete(ctx context.Context, userID string) error
}

const quizSessionKeyPrefix = "quiz_session:"

func quizSessionKey(userID string) string {
	return quizSessionKeyPrefix + userID
}

type RedisQuizSessionStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisQuizSessionStore(client *redis.Client, ttl time.Duration) *RedisQuizSessionStore {
	return &RedisQuizSessionStore{Client: client, TTL: ttl}
}

func (r *RedisQuizSessionStore) Get(ctx context.Context, userID string) (*QuizSession, error) {
	data, err := r.Client.Get(ctx, quizSessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, util.ErrNoActiveAttempt
	}
	if err != nil {
		return nil, err
	}
	var s QuizSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode quiz session: %w", err)
	}
	return &s, nil
}

// Save 每次保存刷新过期时间
func (r *RedisQuizSessionStore) Save(ctx context.Context, s *QuizSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, quizSessionKey(s.UserID), data, r.TTL).Err()
}

func (r *RedisQuizSessionStore) Delete(ctx context.Context, userID string) error {
	return r.Client.Del(ctx, quizSessionKey(userID)).Err()
}

type memorySession struct {
	data      []byte
	expiresAt time.Time
}

// MemoryQuizSessionStore 单实例部署（redis.enabled=false）和测试使用
type MemoryQuizSessionStore struct {
	TTL time.Duration

	now   func() time.Time
	mu    sync.Mutex
	items map[string]memorySession
}

func NewMemoryQuizSessionStore(ttl time.Duration) *MemoryQuizSessionStore {
	return &MemoryQuizSessionStore{
		TTL:   ttl,
		now:   time.Now,
		items: make(map[string]memorySession),
	}
}

func (m *MemoryQuizSessionStore) Get(_ context.Context, userID string) (*QuizSession, error) {
	m.mu.Lock()
	item, ok := m.items[userID]
	if ok && m.TTL > 0 && m.now().After(item.expiresAt) {
		delete(m.items, userID)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, util.ErrNoActiveAttempt
	}

	// 返回副本
	var s QuizSession
	if err := json.Unmarshal(item.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *MemoryQuizSessionStore) Save(_ context.Context, s *QuizSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.UserID] = memorySession{data: data, expiresAt: m.now().Add(m.TTL)}
	return nil
}

func (m *MemoryQuizSessionStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, userID)
	return nil
}

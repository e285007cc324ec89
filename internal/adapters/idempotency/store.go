// Package idempotency は Idempotency-Key ヘッダー付き書き込みの応答を保存し、再送時に再生するためのストアです。
package idempotency

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrInFlight は同じキーのリクエストが処理中であることを表します。
var ErrInFlight = errors.New("idempotency: request with the same key is in flight")

// Response は保存された応答です。
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	// RequestHash は最初のリクエストボディの SHA-256 (16 進) です。
	RequestHash string `json:"request_hash"`
}

// ReleaseFunc は Acquire で確保した処理中フラグを解放します。
type ReleaseFunc func(ctx context.Context) error

// Store は応答の保存と処理中フラグの管理を行います。
type Store interface {
	Get(ctx context.Context, key string) (*Response, bool, error)
	Save(ctx context.Context, key string, resp *Response, ttl time.Duration) error
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

type memoryEntry struct {
	resp      Response
	expiresAt time.Time
}

// MemoryStore はプロセス内に保持する Store です。Redis を利用しない構成で使います。
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	entries  map[string]memoryEntry
	inFlight map[string]time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore は MemoryStore を生成します。
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:      now,
		entries:  make(map[string]memoryEntry),
		inFlight: make(map[string]time.Time),
	}
}

// Get は有効期限内の応答を返します。
func (s *MemoryStore) Get(_ context.Context, key string) (*Response, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}

	resp := entry.resp
	resp.Body = append([]byte(nil), entry.resp.Body...)
	return &resp, true, nil
}

// Save は応答を ttl の間保存します。
func (s *MemoryStore) Save(_ context.Context, key string, resp *Response, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *resp
	stored.Body = append([]byte(nil), resp.Body...)
	s.entries[key] = memoryEntry{resp: stored, expiresAt: s.now().Add(ttl)}
	s.evictExpiredLocked()
	return nil
}

// Acquire は処理中フラグを確保します。確保済みで期限内であれば ErrInFlight を返します。
func (s *MemoryStore) Acquire(_ context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expiresAt, ok := s.inFlight[key]; ok && s.now().Before(expiresAt) {
		return nil, ErrInFlight
	}
	expiresAt := s.now().Add(ttl)
	s.inFlight[key] = expiresAt

	return func(context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		// 期限切れ後に別リクエストが確保したフラグは解放しない
		if current, ok := s.inFlight[key]; ok && current.Equal(expiresAt) {
			delete(s.inFlight, key)
		}
		return nil
	}, nil
}

func (s *MemoryStore) evictExpiredLocked() {
	now := s.now()
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

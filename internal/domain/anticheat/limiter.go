package anticheat

import (
	"sync"
	"time"

	"github.com/cogniquest/cogniquest-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT LIMITER - ЛИМИТ ЧАСТОТЫ ПОПЫТОК
// ══════════════════════════════════════════════════════════════════════════════

// LimiterConfig - настройки лимита попыток на пользователя.
type LimiterConfig struct {
	// MaxAttempts - максимум попыток в одном окне.
	MaxAttempts int

	// Window - длительность фиксированного окна.
	Window time.Duration
}

// DefaultLimiterConfig возвращает лимит 50 попыток в минуту.
func DefaultLimiterConfig() LimiterConfig {
	return LimiterConfig{
		MaxAttempts: 50,
		Window:      time.Minute,
	}
}

// attemptBucket - состояние окна одного пользователя.
type attemptBucket struct {
	windowStart time.Time
	count       int
}

// AttemptLimiter ограничивает частоту попыток фиксированным окном:
// счётчик обнуляется в начале каждого нового окна. Грубый фильтр перед
// более тонкими эвристиками детектора.
type AttemptLimiter struct {
	mu sync.Mutex

	maxAttempts int
	window      time.Duration
	buckets     map[shared.UserID]*attemptBucket
}

// NewAttemptLimiter создаёт лимитер с заданными настройками.
func NewAttemptLimiter(config LimiterConfig) *AttemptLimiter {
	return &AttemptLimiter{
		maxAttempts: config.MaxAttempts,
		window:      config.Window,
		buckets:     make(map[shared.UserID]*attemptBucket),
	}
}

// Allow регистрирует попытку пользователя. Возвращает
// shared.ErrAttemptRateLimited, если лимит окна исчерпан.
func (l *AttemptLimiter) Allow(userID shared.UserID, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[userID]
	if !ok || now.Sub(bucket.windowStart) >= l.window {
		l.buckets[userID] = &attemptBucket{windowStart: now, count: 1}
		return nil
	}

	if bucket.count >= l.maxAttempts {
		return shared.ErrAttemptRateLimited
	}
	bucket.count++
	return nil
}

// Remaining возвращает число оставшихся в текущем окне попыток.
func (l *AttemptLimiter) Remaining(userID shared.UserID, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[userID]
	if !ok || now.Sub(bucket.windowStart) >= l.window {
		return l.maxAttempts
	}
	return l.maxAttempts - bucket.count
}

// Reset сбрасывает окно пользователя.
func (l *AttemptLimiter) Reset(userID shared.UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, userID)
}

package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const namespace = "otp_rate"

// ErrLimited is matched by every limiter rejection.
var ErrLimited = errors.New("too many OTP requests")

// LimitError carries how long the caller should wait.
type LimitError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s; try again in %d seconds", e.Reason, int(e.RetryAfter.Seconds()))
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimited
}

type counterStore interface {
	Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error
	GetTTL(ctx context.Context, namespace, key string) (time.Duration, error)
	IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error)
}

// Limiter caps OTP requests per cashier: a cooldown between requests and a
// maximum count per window, after which the cashier is blocked for three
// windows.
type Limiter struct {
	store       counterStore
	window      time.Duration
	maxInWindow int
	cooldown    time.Duration
}

func NewLimiter(store counterStore, window time.Duration, max int, cooldown time.Duration) *Limiter {
	return &Limiter{store: store, window: window, maxInWindow: max, cooldown: cooldown}
}

func (l *Limiter) CanRequest(ctx context.Context, userID, purpose string) error {
	blockKey := fmt.Sprintf("otp:block:%s:%s", userID, purpose)
	lastKey := fmt.Sprintf("otp:last:%s:%s", userID, purpose)
	countKey := fmt.Sprintf("otp:count:%s:%s", userID, purpose)

	if ttl, _ := l.store.GetTTL(ctx, namespace, blockKey); ttl > 0 {
		return &LimitError{Reason: "too many OTP requests", RetryAfter: ttl}
	}
	if ttl, _ := l.store.GetTTL(ctx, namespace, lastKey); ttl > 0 {
		return &LimitError{Reason: "please wait before requesting another OTP", RetryAfter: ttl}
	}

	cnt, err := l.store.IncrWithExpire(ctx, namespace, countKey, l.window)
	if err != nil {
		return err
	}
	if int(cnt) > l.maxInWindow {
		block := l.window * 3
		_ = l.store.Set(ctx, namespace, blockKey, "1", block)
		return &LimitError{Reason: "too many OTP requests", RetryAfter: block}
	}

	if l.cooldown > 0 {
		_ = l.store.Set(ctx, namespace, lastKey, "1", l.cooldown)
	}
	return nil
}

package subscription

import (
	"context"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/rootseed/pos-otp-relay/internal/domain"
)

const DefaultInterval = 2 * time.Second

// Fetcher returns a full snapshot of the message log.
type Fetcher interface {
	ListMessages(ctx context.Context) ([]domain.Message, error)
}

type Poller struct {
	Fetcher  Fetcher
	Interval time.Duration
	Clock    func() time.Time
	Logger   *zap.Logger
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

func (p *Poller) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock()
}

// Diffs yields, per poll, the messages that are new or changed since the
// previous poll. Expired messages are dropped before diffing. A failed fetch
// yields the error and keeps the previous snapshot. The sequence ends when ctx
// is cancelled or the consumer stops iterating; each iteration starts from an
// empty snapshot.
func (p *Poller) Diffs(ctx context.Context) iter.Seq2[[]domain.Message, error] {
	return func(yield func([]domain.Message, error) bool) {
		ticker := time.NewTicker(p.interval())
		defer ticker.Stop()

		var prev []domain.Message
		for {
			if ctx.Err() != nil {
				return
			}
			msgs, err := p.Fetcher.ListMessages(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				if !yield(nil, err) {
					return
				}
			} else {
				next := activeOnly(msgs, p.now())
				changed := Diff(prev, next)
				prev = next
				if len(changed) > 0 && !yield(changed, nil) {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// Run publishes every changed message on bus until ctx ends.
func (p *Poller) Run(ctx context.Context, bus *Bus) {
	for changed, err := range p.Diffs(ctx) {
		if err != nil {
			if p.Logger != nil {
				p.Logger.Warn("poll failed", zap.Error(err))
			}
			continue
		}
		for _, msg := range changed {
			bus.Publish(msg)
		}
	}
}

// Diff returns the messages in next that are absent from prev or differ from
// their previous version. Order follows next.
func Diff(prev, next []domain.Message) []domain.Message {
	seen := make(map[string]domain.Message, len(prev))
	for _, m := range prev {
		seen[m.ID] = m
	}
	var out []domain.Message
	for _, m := range next {
		old, ok := seen[m.ID]
		if ok && sameMessage(old, m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func activeOnly(msgs []domain.Message, now time.Time) []domain.Message {
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.IsExpired(now) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func sameMessage(a, b domain.Message) bool {
	return a.ID == b.ID &&
		a.Type == b.Type &&
		a.SenderID == b.SenderID &&
		a.Status == b.Status &&
		sameString(a.SenderName, b.SenderName) &&
		sameString(a.RecipientID, b.RecipientID) &&
		sameString(a.OTP, b.OTP) &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		sameTime(a.ExpiresAt, b.ExpiresAt) &&
		sameTime(a.UpdatedAt, b.UpdatedAt)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

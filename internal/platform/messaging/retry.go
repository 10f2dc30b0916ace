package messaging

import (
	"context"
	"time"

	"agora/internal/shared/events"

	"github.com/cenkalti/backoff/v4"
)

// Retrying retries transient publish failures with exponential backoff
// before giving the error back to the relay.
type Retrying struct {
	Next            Publisher
	MaxRetries      uint64
	InitialInterval time.Duration
}

func (r Retrying) Publish(ctx context.Context, topic string, event events.Envelope) error {
	policy := backoff.NewExponentialBackOff()
	if r.InitialInterval > 0 {
		policy.InitialInterval = r.InitialInterval
	}
	return backoff.Retry(func() error {
		return r.Next.Publish(ctx, topic, event)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, r.MaxRetries), ctx))
}

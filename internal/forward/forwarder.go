// Package forward adapts accepted events into sink records and
// delivers them with a bounded retry budget.
package forward

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"game-events/internal/model"
	"game-events/internal/sink"
)

const maxBackoff = 5 * time.Second

// Forwarder serializes events and pushes them through the sink.
// Delivery retries a bounded number of times with exponential backoff;
// an exhausted budget surfaces the last sink error.
type Forwarder struct {
	sink           sink.Sink
	maxAttempts    int
	attemptTimeout time.Duration
	backoff        time.Duration

	sleep func(context.Context, time.Duration) error
}

// New builds a Forwarder. maxAttempts must be at least 1.
func New(s sink.Sink, maxAttempts int, attemptTimeout, backoff time.Duration) *Forwarder {
	return &Forwarder{
		sink:           s,
		maxAttempts:    maxAttempts,
		attemptTimeout: attemptTimeout,
		backoff:        backoff,
		sleep:          sleepCtx,
	}
}

// Deliver encodes the event as one newline-terminated JSON record,
// keyed by app_id, and hands it to the sink. It returns nil once the
// sink acknowledges or the last error after the retry budget runs out.
func (f *Forwarder) Deliver(ctx context.Context, evt model.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	rec := sink.Record{
		Key:  []byte(evt.AppID),
		Data: append(data, '\n'),
	}

	backoff := f.backoff
	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
		err := f.sink.Deliver(attemptCtx, rec)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == f.maxAttempts {
			break
		}
		log.Warn().
			Err(err).
			Str("event_id", evt.EventID).
			Int("attempt", attempt).
			Msg("sink delivery failed, retrying")
		if err := f.sleep(ctx, backoff); err != nil {
			return fmt.Errorf("deliver event %s: %w", evt.EventID, lastErr)
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return fmt.Errorf("deliver event %s: %w", evt.EventID, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Package pipeline orchestrates ingestion: authenticate, validate,
// deduplicate, forward. Stages run in that order for every request and
// the first failing stage is terminal.
package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"game-events/internal/auth"
	"game-events/internal/dedup"
	"game-events/internal/forward"
	"game-events/internal/model"
)

// Kind classifies the terminal outcome of one ingestion attempt.
type Kind int

const (
	// Accepted: fresh event, validated and delivered.
	Accepted Kind = iota
	// Duplicate: event_id already recorded; success-shaped no-op.
	Duplicate
	// Unauthorized: credential missing, malformed, or wrong.
	Unauthorized
	// Invalid: one or more field constraints violated.
	Invalid
	// DeliveryFailed: retry budget exhausted after the dedup record
	// was written. A client retry of the same event_id returns
	// Duplicate and the event is not redelivered.
	DeliveryFailed
)

var outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ingest_pipeline_outcomes_total",
	Help: "Terminal pipeline outcomes by kind",
}, []string{"outcome"})

var kindLabels = map[Kind]string{
	Accepted:       "accepted",
	Duplicate:      "duplicate",
	Unauthorized:   "unauthorized",
	Invalid:        "invalid",
	DeliveryFailed: "delivery_failed",
}

// Result carries the outcome back to the transport layer.
type Result struct {
	Kind        Kind
	EventID     string
	FieldErrors []model.FieldError
	Err         error
}

// Pipeline wires the per-request stages together. All fields are
// shared and safe for concurrent use.
type Pipeline struct {
	verifier  *auth.Verifier
	deduper   dedup.Deduper
	forwarder *forward.Forwarder
	now       func() time.Time
}

// New builds a Pipeline over the given collaborators.
func New(verifier *auth.Verifier, deduper dedup.Deduper, forwarder *forward.Forwarder) *Pipeline {
	return &Pipeline{
		verifier:  verifier,
		deduper:   deduper,
		forwarder: forwarder,
		now:       time.Now,
	}
}

// Ingest runs one event through the pipeline. authorization is the raw
// Authorization header; expected fixes the event type for the typed
// endpoints and is empty for the discriminated one. A non-nil error
// means the dedup backing store failed and the caller should answer
// with a 5xx rather than any terminal Result.
//
// Nothing after authentication observes unauthenticated payloads, and
// the dedup record is written before delivery is attempted.
func (p *Pipeline) Ingest(ctx context.Context, authorization string, body []byte, expected model.EventType) (Result, error) {
	if !p.verifier.Verify(authorization) {
		return p.terminal(Result{Kind: Unauthorized}), nil
	}

	evt, err := model.Decode(body, expected)
	if err != nil {
		return p.terminal(Result{
			Kind:        Invalid,
			FieldErrors: []model.FieldError{{Field: "body", Message: "invalid JSON"}},
		}), nil
	}
	if fieldErrs := evt.Validate(expected); len(fieldErrs) > 0 {
		return p.terminal(Result{Kind: Invalid, FieldErrors: fieldErrs}), nil
	}

	// A dropped client connection must not roll back dedup state or
	// abandon an in-flight delivery.
	ctx = context.WithoutCancel(ctx)

	fresh, err := p.deduper.CheckAndRecord(ctx, evt.EventID)
	if err != nil {
		return Result{}, err
	}
	if !fresh {
		return p.terminal(Result{Kind: Duplicate, EventID: evt.EventID}), nil
	}

	evt.ReceivedAt = p.now().UTC().Format(time.RFC3339Nano)

	if err := p.forwarder.Deliver(ctx, evt); err != nil {
		log.Error().Err(err).Str("event_id", evt.EventID).Msg("delivery failed after retries")
		return p.terminal(Result{Kind: DeliveryFailed, EventID: evt.EventID, Err: err}), nil
	}
	return p.terminal(Result{Kind: Accepted, EventID: evt.EventID}), nil
}

func (p *Pipeline) terminal(res Result) Result {
	outcomes.WithLabelValues(kindLabels[res.Kind]).Inc()
	return res
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"game-events/internal/auth"
	"game-events/internal/dedup"
	"game-events/internal/forward"
	"game-events/internal/model"
	"game-events/internal/sink"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}

const (
	secret    = "test-secret"
	goodToken = "Bearer test-secret"
)

func installBody(eventID string) []byte {
	return []byte(fmt.Sprintf(
		`{"event_id":%q,"event_type":"install","occurred_at":"2024-01-01T00:00:00Z","player_id":"p1","app_id":"com.game.test","platform":"ios"}`,
		eventID))
}

func purchaseBody(eventID string, quantity int) []byte {
	return []byte(fmt.Sprintf(
		`{"event_id":%q,"event_type":"purchase","occurred_at":"2024-01-01T00:00:00Z","player_id":"p1","app_id":"com.game.test","platform":"ios","product_id":"gems_pack_01","quantity":%d,"amount_micros":4990000,"currency":"EUR"}`,
		eventID, quantity))
}

func newTestPipeline(t *testing.T, mock *sink.MockSink, maxAttempts int) *Pipeline {
	t.Helper()
	store := dedup.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	f := forward.New(mock, maxAttempts, time.Second, time.Millisecond)
	return New(auth.NewVerifier(secret), store, f)
}

func TestIngestAcceptsFreshEvent(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)

	res, err := p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Accepted, res.Kind)
	require.Equal(t, "e1", res.EventID)
	require.Equal(t, 1, mock.DeliveryCount())
}

func TestIngestStampsReceivedAt(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)
	frozen := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return frozen }

	// The client must not be able to set received_at.
	body := []byte(`{"event_id":"e1","event_type":"install","occurred_at":"2024-01-01T00:00:00Z","player_id":"p1","app_id":"a","platform":"ios","received_at":"1999-01-01T00:00:00Z"}`)
	_, err := p.Ingest(context.Background(), goodToken, body, model.TypeInstall)
	require.NoError(t, err)

	recs := mock.Records()
	require.Len(t, recs, 1)
	var delivered model.Event
	require.NoError(t, jsonUnmarshalTrimmed(recs[0].Data, &delivered))
	require.Equal(t, frozen.Format(time.RFC3339Nano), delivered.ReceivedAt)
}

func TestIngestDuplicateIsIdempotentNoOp(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)

	res, err := p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Accepted, res.Kind)

	// Same ID with a different payload is still a silent no-op.
	res, err = p.Ingest(context.Background(), goodToken, purchaseBody("e1", 1), model.TypePurchase)
	require.NoError(t, err)
	require.Equal(t, Duplicate, res.Kind)
	require.Equal(t, "e1", res.EventID)
	require.Equal(t, 1, mock.DeliveryCount())
}

func TestIngestUnauthorizedBeforeAnythingElse(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)

	// Even a completely invalid payload yields Unauthorized, and the
	// event ID must not be recorded.
	res, err := p.Ingest(context.Background(), "Bearer wrong", []byte(`not json`), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Kind)
	require.Equal(t, 0, mock.DeliveryCount())

	res, err = p.Ingest(context.Background(), "Bearer wrong", installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Unauthorized, res.Kind)

	// Proper credential with the same ID is fresh: the rejected
	// request never touched dedup state.
	res, err = p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Accepted, res.Kind)
}

func TestIngestInvalidEnumeratesFields(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)

	res, err := p.Ingest(context.Background(), goodToken, purchaseBody("e1", 0), model.TypePurchase)
	require.NoError(t, err)
	require.Equal(t, Invalid, res.Kind)
	require.Len(t, res.FieldErrors, 1)
	require.Equal(t, "quantity", res.FieldErrors[0].Field)
	require.Equal(t, 0, mock.DeliveryCount())

	// Rejected events are not recorded: a fixed resubmission succeeds.
	res, err = p.Ingest(context.Background(), goodToken, purchaseBody("e1", 1), model.TypePurchase)
	require.NoError(t, err)
	require.Equal(t, Accepted, res.Kind)
}

func TestIngestMalformedJSONIsInvalid(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)

	res, err := p.Ingest(context.Background(), goodToken, []byte(`{"event_id":`), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Invalid, res.Kind)
	require.Equal(t, 0, mock.DeliveryCount())
}

func TestIngestDeliveryFailureKeepsDedupRecord(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 2)
	mock.FailNext(2)

	res, err := p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, DeliveryFailed, res.Kind)
	require.ErrorIs(t, res.Err, sink.ErrInjected)
	require.Equal(t, 0, mock.DeliveryCount())

	// The dedup record was written before delivery, so a client retry
	// is a Duplicate and the event is not redelivered.
	res, err = p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Duplicate, res.Kind)
	require.Equal(t, 0, mock.DeliveryCount())
}

func TestIngestRetriesTransientSinkFailure(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 3)
	mock.FailNext(2)

	res, err := p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.NoError(t, err)
	require.Equal(t, Accepted, res.Kind)
	require.Equal(t, 1, mock.DeliveryCount())
}

func TestIngestConcurrentSameEventID(t *testing.T) {
	mock := sink.NewQuietMockSink()
	p := newTestPipeline(t, mock, 1)

	const n = 32
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		accepted   int
		duplicates int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := p.Ingest(context.Background(), goodToken, installBody("race"), model.TypeInstall)
			require.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			switch res.Kind {
			case Accepted:
				accepted++
			case Duplicate:
				duplicates++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, accepted)
	require.Equal(t, n-1, duplicates)
	require.Equal(t, 1, mock.DeliveryCount())
}

func TestIngestDedupBackendFailure(t *testing.T) {
	mock := sink.NewQuietMockSink()
	f := forward.New(mock, 1, time.Second, time.Millisecond)
	p := New(auth.NewVerifier(secret), failingDeduper{}, f)

	_, err := p.Ingest(context.Background(), goodToken, installBody("e1"), model.TypeInstall)
	require.Error(t, err)
	require.Equal(t, 0, mock.DeliveryCount())
}

type failingDeduper struct{}

func (failingDeduper) CheckAndRecord(context.Context, string) (bool, error) {
	return false, errors.New("store down")
}

func (failingDeduper) Close() error { return nil }

func jsonUnmarshalTrimmed(data []byte, v any) error {
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	return json.Unmarshal(data, v)
}

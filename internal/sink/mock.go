package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrInjected is returned by a MockSink that was told to fail.
var ErrInjected = errors.New("sink: injected failure")

// MockSink records deliveries in memory instead of reaching a real
// stream. It backs MOCK_SINK mode and lets tests script transient
// failures ahead of a success.
type MockSink struct {
	mu       sync.Mutex
	records  []Record
	failNext int
	quiet    bool
}

// NewMockSink returns an empty mock that logs every delivery.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// NewQuietMockSink returns a mock that skips delivery logging; used in
// tests.
func NewQuietMockSink() *MockSink {
	return &MockSink{quiet: true}
}

// FailNext makes the next n Deliver calls return ErrInjected.
func (s *MockSink) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Deliver appends the record to the in-memory log.
func (s *MockSink) Deliver(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return ErrInjected
	}
	s.records = append(s.records, rec)
	if !s.quiet {
		log.Info().Bytes("record", rec.Data).Msg("mock sink would deliver")
	}
	return nil
}

// Records returns a copy of everything delivered so far.
func (s *MockSink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// DeliveryCount reports how many records were accepted.
func (s *MockSink) DeliveryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close is a no-op.
func (s *MockSink) Close() error {
	return nil
}

// Package sink defines the capability boundary between the ingestion
// pipeline and the downstream streaming system.
package sink

import "context"

// Record is one framed payload bound for the stream. Key selects the
// partition for backends that shard; backends without partitioning may
// ignore it.
type Record struct {
	Key  []byte
	Data []byte
}

// Sink durably hands a record to the downstream stream. Deliver
// returns nil only when the backend acknowledged the record; a non-nil
// error is retriable from the caller's point of view.
type Sink interface {
	Deliver(ctx context.Context, rec Record) error
	Close() error
}

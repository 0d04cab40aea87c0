// Package dedup tracks previously accepted event IDs so the pipeline
// accepts each event at most once within the retention horizon.
package dedup

import "context"

// Deduper records event IDs atomically. CheckAndRecord returns
// fresh=true exactly once per event ID within the retention horizon:
// two concurrent calls with the same ID never both observe fresh.
// A non-nil error means the backing store failed and the freshness of
// the ID is unknown.
type Deduper interface {
	CheckAndRecord(ctx context.Context, eventID string) (fresh bool, err error)
	Close() error
}

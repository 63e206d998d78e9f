package cache

import "time"

// Recorder receives pool events for metrics.
type Recorder interface {
	// RecordLookup is called once per resolved GetItem.
	RecordLookup(pool string, hit bool)

	// RecordStoreOperation is called after every backing store call.
	RecordStoreOperation(pool, op string, err error, duration time.Duration)

	// SetDeferred reports the current size of the deferred buffer.
	SetDeferred(pool string, count int)

	// RecordCommit is called once per Commit with its aggregate outcome.
	RecordCommit(pool string, ok bool)
}

// NoopRecorder discards every event.
type NoopRecorder struct{}

func (NoopRecorder) RecordLookup(string, bool)                                {}
func (NoopRecorder) RecordStoreOperation(string, string, error, time.Duration) {}
func (NoopRecorder) SetDeferred(string, int)                                  {}
func (NoopRecorder) RecordCommit(string, bool)                                {}

package router

import (
	"context"
	"sync"

	"telemon/internal/events"
)

// FakeSink is a test fake for Sink.
type FakeSink struct {
	mu         sync.Mutex
	Delivered  []string
	Levels     []events.AlertLevel
	DeliverErr error
}

func (f *FakeSink) Deliver(ctx context.Context, text string, level events.AlertLevel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeliverErr != nil {
		return f.DeliverErr
	}
	f.Delivered = append(f.Delivered, text)
	f.Levels = append(f.Levels, level)
	return nil
}

func (f *FakeSink) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Delivered)
}

// FakeMetrics records metric calls for assertions.
type FakeMetrics struct {
	Received       int
	Delivered      int
	Batched        int
	Suppressed     map[string]int
	DeliveryErrors int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{Suppressed: make(map[string]int)}
}

func (f *FakeMetrics) RecordReceived()                { f.Received++ }
func (f *FakeMetrics) RecordDelivered()               { f.Delivered++ }
func (f *FakeMetrics) RecordBatched()                 { f.Batched++ }
func (f *FakeMetrics) RecordSuppressed(reason string) { f.Suppressed[reason]++ }
func (f *FakeMetrics) RecordDeliveryError()           { f.DeliveryErrors++ }

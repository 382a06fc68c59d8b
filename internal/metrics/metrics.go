// Package metrics collects alert pipeline counters and periodically reports
// them to the shared state store for centralized access.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"telemon/internal/store"
)

const (
	// reportTTL is how long a snapshot stays in the store if not refreshed.
	reportTTL = 2 * time.Minute
	// DefaultReportInterval is the default interval for writing snapshots.
	DefaultReportInterval = 30 * time.Second
)

// Snapshot holds the pipeline counters for one process.
type Snapshot struct {
	Instance    string    `json:"instance"`
	StartedAt   time.Time `json:"started_at"`
	LastUpdated time.Time `json:"last_updated"`

	EventsReceived  uint64 `json:"events_received"`
	AlertsDelivered uint64 `json:"alerts_delivered"`
	AlertsBatched   uint64 `json:"alerts_batched"`
	DeliveryErrors  uint64 `json:"delivery_errors"`

	// Suppressions broken down by routing reason.
	Suppressed map[string]uint64 `json:"suppressed,omitempty"`
}

// Collector collects pipeline counters and reports them to the store.
// It implements the router's MetricsRecorder interface.
type Collector struct {
	instance       string
	store          store.Store
	prefix         string
	startedAt      time.Time
	reportInterval time.Duration

	eventsReceived  atomic.Uint64
	alertsDelivered atomic.Uint64
	alertsBatched   atomic.Uint64
	deliveryErrors  atomic.Uint64

	suppressedMu sync.RWMutex
	suppressed   map[string]*atomic.Uint64

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// DefaultInstance returns a unique collector identity: the hostname plus a
// random suffix, so two processes on one host never overwrite each other's
// snapshot.
func DefaultInstance() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s", host, uuid.New().String()[:8])
}

// NewCollector creates a collector identified by instance (see
// DefaultInstance).
func NewCollector(instance string, st store.Store, prefix string) *Collector {
	return &Collector{
		instance:       instance,
		store:          st,
		prefix:         prefix,
		startedAt:      time.Now().UTC(),
		reportInterval: DefaultReportInterval,
		suppressed:     make(map[string]*atomic.Uint64),
		stopCh:         make(chan struct{}),
	}
}

// SetReportInterval sets the interval for writing snapshots to the store.
func (c *Collector) SetReportInterval(interval time.Duration) {
	c.reportInterval = interval
}

// Start begins the periodic snapshot reporting.
func (c *Collector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.reportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				c.write(context.Background()) // Final write
				return
			case <-c.stopCh:
				c.write(context.Background()) // Final write
				return
			case <-ticker.C:
				c.write(ctx)
			}
		}
	}()
}

// Stop stops the reporting goroutine after a final write.
func (c *Collector) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// RecordReceived increments the events received counter.
func (c *Collector) RecordReceived() {
	c.eventsReceived.Add(1)
}

// RecordDelivered increments the delivered counter.
func (c *Collector) RecordDelivered() {
	c.alertsDelivered.Add(1)
}

// RecordBatched increments the batched counter.
func (c *Collector) RecordBatched() {
	c.alertsBatched.Add(1)
}

// RecordDeliveryError increments the delivery errors counter.
func (c *Collector) RecordDeliveryError() {
	c.deliveryErrors.Add(1)
}

// RecordSuppressed increments the suppression counter for reason.
func (c *Collector) RecordSuppressed(reason string) {
	c.suppressedMu.RLock()
	counter, exists := c.suppressed[reason]
	c.suppressedMu.RUnlock()

	if !exists {
		c.suppressedMu.Lock()
		// Double-check after acquiring write lock
		if counter, exists = c.suppressed[reason]; !exists {
			counter = &atomic.Uint64{}
			c.suppressed[reason] = counter
		}
		c.suppressedMu.Unlock()
	}
	counter.Add(1)
}

// GetSnapshot returns current counters without writing to the store.
func (c *Collector) GetSnapshot() *Snapshot {
	c.suppressedMu.RLock()
	suppressed := make(map[string]uint64, len(c.suppressed))
	for reason, counter := range c.suppressed {
		suppressed[reason] = counter.Load()
	}
	c.suppressedMu.RUnlock()

	return &Snapshot{
		Instance:        c.instance,
		StartedAt:       c.startedAt,
		LastUpdated:     time.Now().UTC(),
		EventsReceived:  c.eventsReceived.Load(),
		AlertsDelivered: c.alertsDelivered.Load(),
		AlertsBatched:   c.alertsBatched.Load(),
		DeliveryErrors:  c.deliveryErrors.Load(),
		Suppressed:      suppressed,
	}
}

func (c *Collector) write(ctx context.Context) {
	snapshot := c.GetSnapshot()

	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Failed to marshal metrics", "instance", c.instance, "error", err)
		return
	}

	key := store.Key(c.prefix, "metrics", c.instance)
	if err := c.store.Set(ctx, key, string(data), reportTTL); err != nil {
		slog.Error("Failed to write metrics to store", "instance", c.instance, "error", err)
		return
	}

	slog.Debug("Metrics written to store", "instance", c.instance, "key", key)
}

package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"telemon/internal/config"
	"telemon/internal/events"
	"telemon/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Enabled:            true,
		DailyReportEnabled: true,
		DailyReportHour:    9,
		DailyReportMinute:  0,
		RedisKeyPrefix:     "monitoring",
		StatsTimeout:       time.Second,
		QueueStuckMinutes:  10,
	}
}

func newTestScheduler(t *testing.T, cfg *config.Config, stats StatisticsSource, queue QueueHealthSource, pipeline Pipeline) *Scheduler {
	t.Helper()
	s, err := NewScheduler(cfg, store.NewLocalStore(), stats, queue, pipeline)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}
	return s
}

func TestTick_WaitsBeforeScheduledTime(t *testing.T) {
	pipeline := &FakePipeline{}
	s := newTestScheduler(t, testConfig(), &FakeStats{}, nil, pipeline)
	s.now = func() time.Time { return time.Date(2025, 6, 2, 8, 30, 0, 0, time.UTC) }

	s.Tick(context.Background())

	if len(pipeline.Routed) != 0 {
		t.Errorf("digest routed before scheduled time")
	}
	if s.State() != StateWaiting {
		t.Errorf("State() = %v, want waiting", s.State())
	}
}

func TestTick_SendsOncePerDate(t *testing.T) {
	pipeline := &FakePipeline{}
	s := newTestScheduler(t, testConfig(), &FakeStats{TotalUsersVal: 100}, nil, pipeline)
	s.now = func() time.Time { return time.Date(2025, 6, 2, 9, 1, 0, 0, time.UTC) }

	// Repeated ticks after the scheduled time send exactly one digest.
	for i := 0; i < 5; i++ {
		s.Tick(context.Background())
	}

	if len(pipeline.Routed) != 1 {
		t.Fatalf("digests routed = %d, want 1", len(pipeline.Routed))
	}
	ev := pipeline.Routed[0]
	if ev.Kind != events.KindDigest {
		t.Errorf("Kind = %v, want %v", ev.Kind, events.KindDigest)
	}
	if ev.Level != events.LevelInfo {
		t.Errorf("Level = %v, want INFO", ev.Level)
	}
	if ev.TaskName != "2025-06-02" {
		t.Errorf("digest date identity = %q, want 2025-06-02", ev.TaskName)
	}
}

func TestTick_ConcurrentSchedulersSingleSend(t *testing.T) {
	// Several scheduler instances sharing one store: the date guard admits
	// exactly one sender.
	st := store.NewLocalStore()
	pipeline := &FakePipeline{}
	now := func() time.Time { return time.Date(2025, 6, 2, 9, 1, 0, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		s, err := NewScheduler(testConfig(), st, &FakeStats{}, nil, pipeline)
		if err != nil {
			t.Fatalf("NewScheduler() error = %v", err)
		}
		s.now = now
		s.Tick(context.Background())
	}

	if len(pipeline.Routed) != 1 {
		t.Errorf("digests routed = %d, want 1 across all instances", len(pipeline.Routed))
	}
}

func TestTick_NextDayNewDigest(t *testing.T) {
	pipeline := &FakePipeline{}
	s := newTestScheduler(t, testConfig(), &FakeStats{}, nil, pipeline)

	current := time.Date(2025, 6, 2, 9, 1, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Tick(context.Background())
	current = current.AddDate(0, 0, 1)
	s.Tick(context.Background())

	if len(pipeline.Routed) != 2 {
		t.Fatalf("digests routed = %d, want 2 (one per day)", len(pipeline.Routed))
	}
	if pipeline.Routed[0].TaskName == pipeline.Routed[1].TaskName {
		t.Error("consecutive days must have distinct digest identities")
	}
}

func TestTick_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.DailyReportEnabled = false
	pipeline := &FakePipeline{}
	s := newTestScheduler(t, cfg, &FakeStats{}, nil, pipeline)
	s.now = func() time.Time { return time.Date(2025, 6, 2, 9, 1, 0, 0, time.UTC) }

	s.Tick(context.Background())

	if len(pipeline.Routed) != 0 {
		t.Error("disabled scheduler routed a digest")
	}
}

func TestCompose_AllMetrics(t *testing.T) {
	stats := &FakeStats{
		NewUsersVal:        10,
		ActiveUsersVal:     50,
		TotalUsersVal:      100,
		NewProjectsVal:     5,
		UpdatedProjectsVal: 20,
		TotalProjectsVal:   50,
	}
	s := newTestScheduler(t, testConfig(), stats, nil, &FakePipeline{})

	digest := s.Compose(context.Background(), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))

	want := []string{
		"Daily report for 2025-06-01",
		"New users: 10",
		"Active users: 50",
		"Total users: 100",
		"New projects: 5",
		"Updated projects: 20",
		"Total projects: 50",
	}
	for _, line := range want {
		if !strings.Contains(digest, line) {
			t.Errorf("digest missing %q:\n%s", line, digest)
		}
	}
}

func TestCompose_PartialFailure(t *testing.T) {
	// One failing source marks its field unavailable; the rest survive.
	stats := &FakeStats{
		NewUsersVal:    10,
		TotalUsersVal:  100,
		ActiveUsersErr: errors.New("query timeout"),
	}
	s := newTestScheduler(t, testConfig(), stats, nil, &FakePipeline{})

	digest := s.Compose(context.Background(), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))

	if !strings.Contains(digest, "Active users: unavailable") {
		t.Errorf("failing metric not marked unavailable:\n%s", digest)
	}
	if !strings.Contains(digest, "New users: 10") {
		t.Errorf("healthy metric missing:\n%s", digest)
	}
	if !strings.Contains(digest, "Total users: 100") {
		t.Errorf("healthy metric missing:\n%s", digest)
	}
}

func TestCompose_QueueSection(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	queue := &FakeQueue{Size: 3, LastJob: now.Add(-2 * time.Minute)}
	s := newTestScheduler(t, testConfig(), nil, queue, &FakePipeline{})

	digest := s.Compose(context.Background(), now)

	if !strings.Contains(digest, "Queue size: 3") {
		t.Errorf("digest missing queue size:\n%s", digest)
	}
	if strings.Contains(digest, "stuck") {
		t.Errorf("healthy queue reported stuck:\n%s", digest)
	}
}

func TestCompose_StuckQueue(t *testing.T) {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	queue := &FakeQueue{Size: 120, LastJob: now.Add(-45 * time.Minute)}
	s := newTestScheduler(t, testConfig(), nil, queue, &FakePipeline{})

	digest := s.Compose(context.Background(), now)

	if !strings.Contains(digest, "Queue appears stuck") {
		t.Errorf("stuck queue not reported:\n%s", digest)
	}
}

func TestCompose_QueueUnavailable(t *testing.T) {
	queue := &FakeQueue{HealthErr: errors.New("connection refused")}
	s := newTestScheduler(t, testConfig(), nil, queue, &FakePipeline{})

	digest := s.Compose(context.Background(), time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))

	if !strings.Contains(digest, "Queue: unavailable") {
		t.Errorf("unreachable queue not marked unavailable:\n%s", digest)
	}
}

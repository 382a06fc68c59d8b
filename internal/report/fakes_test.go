package report

import (
	"context"
	"time"

	"telemon/internal/events"
	"telemon/internal/router"
)

// FakeStats is a test fake for StatisticsSource with per-metric errors.
type FakeStats struct {
	NewUsersVal        int64
	ActiveUsersVal     int64
	TotalUsersVal      int64
	NewProjectsVal     int64
	UpdatedProjectsVal int64
	TotalProjectsVal   int64

	ActiveUsersErr error
	HealthErr      error
}

func (f *FakeStats) NewUsers(ctx context.Context, start, end time.Time) (int64, error) {
	return f.NewUsersVal, nil
}

func (f *FakeStats) ActiveUsers(ctx context.Context, start, end time.Time) (int64, error) {
	if f.ActiveUsersErr != nil {
		return 0, f.ActiveUsersErr
	}
	return f.ActiveUsersVal, nil
}

func (f *FakeStats) TotalUsers(ctx context.Context) (int64, error) {
	return f.TotalUsersVal, nil
}

func (f *FakeStats) NewProjects(ctx context.Context, start, end time.Time) (int64, error) {
	return f.NewProjectsVal, nil
}

func (f *FakeStats) UpdatedProjects(ctx context.Context, start, end time.Time) (int64, error) {
	return f.UpdatedProjectsVal, nil
}

func (f *FakeStats) TotalProjects(ctx context.Context) (int64, error) {
	return f.TotalProjectsVal, nil
}

func (f *FakeStats) HealthCheck(ctx context.Context, timeout time.Duration) error {
	return f.HealthErr
}

// FakeQueue is a test fake for QueueHealthSource.
type FakeQueue struct {
	HealthErr error
	Size      int64
	LastJob   time.Time
}

func (f *FakeQueue) HealthCheck(ctx context.Context) error { return f.HealthErr }

func (f *FakeQueue) QueueSize(ctx context.Context) (int64, error) { return f.Size, nil }

func (f *FakeQueue) LastJobProcessedAt(ctx context.Context) (time.Time, error) {
	return f.LastJob, nil
}

// FakePipeline records routed events.
type FakePipeline struct {
	Routed   []*events.Event
	RouteErr error
}

func (f *FakePipeline) Route(ctx context.Context, ev *events.Event) (router.Result, error) {
	if f.RouteErr != nil {
		return router.Result{}, f.RouteErr
	}
	f.Routed = append(f.Routed, ev)
	return router.Result{Outcome: router.OutcomeBatched}, nil
}

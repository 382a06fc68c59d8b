package report

import (
	"context"
	"time"
)

// StatisticsSource supplies the application counters aggregated into the
// daily digest. Every method may fail independently; a failed metric is
// reported as unavailable rather than aborting the digest.
type StatisticsSource interface {
	NewUsers(ctx context.Context, start, end time.Time) (int64, error)
	ActiveUsers(ctx context.Context, start, end time.Time) (int64, error)
	TotalUsers(ctx context.Context) (int64, error)
	NewProjects(ctx context.Context, start, end time.Time) (int64, error)
	UpdatedProjects(ctx context.Context, start, end time.Time) (int64, error)
	TotalProjects(ctx context.Context) (int64, error)
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// QueueHealthSource reports on the background job queue, used to detect a
// stuck processing pipeline.
type QueueHealthSource interface {
	HealthCheck(ctx context.Context) error
	QueueSize(ctx context.Context) (int64, error)
	LastJobProcessedAt(ctx context.Context) (time.Time, error)
}

// Package report builds the daily digest from external statistics sources
// and schedules its once-per-day delivery through the alert router.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"telemon/internal/config"
	"telemon/internal/events"
	"telemon/internal/router"
	"telemon/internal/store"
)

// State is the scheduler's position in its daily cycle.
type State string

const (
	StateIdle      State = "idle"
	StateWaiting   State = "waiting"
	StateComposing State = "composing"
	StateDelivered State = "delivered"
)

// Pipeline routes a composed digest like any other event.
type Pipeline interface {
	Route(ctx context.Context, ev *events.Event) (router.Result, error)
}

// Scheduler delivers the daily digest at the configured time. Multiple
// scheduler instances may run concurrently across processes; the once-per-
// date guard in the shared state store ensures a single delivery.
type Scheduler struct {
	cfg      *config.Config
	store    store.Store
	stats    StatisticsSource
	queue    QueueHealthSource
	pipeline Pipeline
	schedule cron.Schedule
	now      func() time.Time

	mu    sync.Mutex
	state State
}

// NewScheduler creates a daily report scheduler. stats and queue may be nil
// when the host application provides no such source; the digest then omits
// those sections.
func NewScheduler(cfg *config.Config, st store.Store, stats StatisticsSource, queue QueueHealthSource, pipeline Pipeline) (*Scheduler, error) {
	spec := fmt.Sprintf("%d %d * * *", cfg.DailyReportMinute, cfg.DailyReportHour)
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid daily report schedule %q: %w", spec, err)
	}
	return &Scheduler{
		cfg:      cfg,
		store:    st,
		stats:    stats,
		queue:    queue,
		pipeline: pipeline,
		schedule: schedule,
		now:      time.Now,
		state:    StateIdle,
	}, nil
}

// State returns the scheduler's current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Run ticks once per minute until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("Starting daily report scheduler",
		"hour", s.cfg.DailyReportHour,
		"minute", s.cfg.DailyReportMinute,
	)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Daily report scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick checks whether today's digest is due and, if this instance wins the
// once-per-date guard, composes and routes it. Repeated ticks after a
// successful send are no-ops for the rest of the day.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.cfg.DailyReportEnabled {
		return
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueAt := s.schedule.Next(startOfDay.Add(-time.Second))
	if now.Before(dueAt) {
		s.setState(StateWaiting)
		return
	}

	date := now.Format("2006-01-02")
	guardKey := store.Key(s.cfg.RedisKeyPrefix, "daily_report", date)
	acquired, err := s.store.SetIfAbsent(ctx, guardKey, "1", 48*time.Hour)
	if err != nil {
		// Unlike alert dedup, the report guard fails closed: a degraded
		// store must not spam one digest per process per tick.
		slog.Warn("Daily report guard unavailable, skipping tick", "error", err)
		return
	}
	if !acquired {
		s.setState(StateIdle)
		return
	}

	s.setState(StateComposing)
	digest := s.Compose(ctx, now)

	res, err := s.pipeline.Route(ctx, events.NewDigest(date, digest))
	if err != nil {
		slog.Error("Failed to deliver daily report", "date", date, "error", err)
	} else {
		slog.Info("Daily report routed", "date", date, "outcome", res.Outcome)
	}
	s.setState(StateDelivered)
	s.setState(StateIdle)
}

// Compose builds the digest text for the period [yesterday 00:00, today
// 00:00) plus all-time totals. Each source failure is isolated: the digest
// reports "unavailable" for that metric and keeps the rest.
func (s *Scheduler) Compose(ctx context.Context, now time.Time) string {
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -1)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Daily report for %s\n", start.Format("2006-01-02"))

	if s.stats != nil {
		fmt.Fprintf(&sb, "New users: %s\n", s.metric(ctx, func(ctx context.Context) (int64, error) {
			return s.stats.NewUsers(ctx, start, end)
		}))
		fmt.Fprintf(&sb, "Active users: %s\n", s.metric(ctx, func(ctx context.Context) (int64, error) {
			return s.stats.ActiveUsers(ctx, start, end)
		}))
		fmt.Fprintf(&sb, "Total users: %s\n", s.metric(ctx, s.stats.TotalUsers))
		fmt.Fprintf(&sb, "New projects: %s\n", s.metric(ctx, func(ctx context.Context) (int64, error) {
			return s.stats.NewProjects(ctx, start, end)
		}))
		fmt.Fprintf(&sb, "Updated projects: %s\n", s.metric(ctx, func(ctx context.Context) (int64, error) {
			return s.stats.UpdatedProjects(ctx, start, end)
		}))
		fmt.Fprintf(&sb, "Total projects: %s\n", s.metric(ctx, s.stats.TotalProjects))
	}

	if s.queue != nil {
		sb.WriteString(s.queueSection(ctx, now))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// metric runs one statistics call under the configured timeout and renders
// its result.
func (s *Scheduler) metric(ctx context.Context, fn func(ctx context.Context) (int64, error)) string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StatsTimeout)
	defer cancel()

	v, err := fn(ctx)
	if err != nil {
		slog.Warn("Statistics source failed", "error", err)
		return "unavailable"
	}
	return strconv.FormatInt(v, 10)
}

func (s *Scheduler) queueSection(ctx context.Context, now time.Time) string {
	var sb strings.Builder

	if err := s.queue.HealthCheck(ctx); err != nil {
		sb.WriteString("Queue: unavailable\n")
		return sb.String()
	}

	if size, err := s.queue.QueueSize(ctx); err != nil {
		sb.WriteString("Queue size: unavailable\n")
	} else {
		fmt.Fprintf(&sb, "Queue size: %d\n", size)
	}

	if last, err := s.queue.LastJobProcessedAt(ctx); err != nil {
		sb.WriteString("Last job processed: unavailable\n")
	} else {
		fmt.Fprintf(&sb, "Last job processed: %s\n", last.UTC().Format(time.RFC3339))
		if now.Sub(last) > s.cfg.QueueStuckThreshold() {
			fmt.Fprintf(&sb, "Queue appears stuck: no job processed for %s\n", now.Sub(last).Round(time.Minute))
		}
	}

	return sb.String()
}

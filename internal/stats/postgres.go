// Package stats provides concrete statistics and queue health sources for
// the daily report.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Postgres implements report.StatisticsSource over the application's
// users and projects tables.
type Postgres struct {
	conn *sql.DB
}

// NewPostgres creates a statistics source using the provided DSN.
func NewPostgres(dsn string) (*Postgres, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL statistics source")

	return &Postgres{conn: conn}, nil
}

// NewPostgresFromDB wraps an existing connection.
func NewPostgresFromDB(conn *sql.DB) *Postgres {
	return &Postgres{conn: conn}
}

// Close closes the database connection.
func (p *Postgres) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Postgres) NewUsers(ctx context.Context, start, end time.Time) (int64, error) {
	return p.count(ctx,
		`SELECT COUNT(*) FROM users WHERE created_at >= $1 AND created_at < $2`,
		start, end)
}

func (p *Postgres) ActiveUsers(ctx context.Context, start, end time.Time) (int64, error) {
	return p.count(ctx,
		`SELECT COUNT(*) FROM users WHERE last_active_at >= $1 AND last_active_at < $2`,
		start, end)
}

func (p *Postgres) TotalUsers(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (p *Postgres) NewProjects(ctx context.Context, start, end time.Time) (int64, error) {
	return p.count(ctx,
		`SELECT COUNT(*) FROM projects WHERE created_at >= $1 AND created_at < $2`,
		start, end)
}

// UpdatedProjects counts projects updated in the period, excluding ones
// created inside it so new projects are not counted twice.
func (p *Postgres) UpdatedProjects(ctx context.Context, start, end time.Time) (int64, error) {
	return p.count(ctx,
		`SELECT COUNT(*) FROM projects WHERE updated_at >= $1 AND updated_at < $2 AND created_at < $1`,
		start, end)
}

func (p *Postgres) TotalProjects(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM projects`)
}

// HealthCheck verifies the database responds within the timeout.
func (p *Postgres) HealthCheck(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (p *Postgres) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := p.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to run count query: %w", err)
	}
	return n, nil
}

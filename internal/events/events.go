// Package events defines the event structures flowing through the alert pipeline.
package events

import "time"

// Kind identifies what produced an event.
type Kind string

const (
	KindException   Kind = "exception"
	KindSlowRequest Kind = "slow_request"
	KindTaskFailure Kind = "task_failure"
	KindTaskSlow    Kind = "task_slow"
	KindDigest      Kind = "daily_report"
)

// Event is a single raw occurrence reported by the host application.
// An Event is immutable once created.
type Event struct {
	Kind       Kind              `json:"kind"`
	Level      AlertLevel        `json:"level"`
	OccurredAt time.Time         `json:"occurred_at"`

	// Exception events.
	ExceptionType string `json:"exception_type,omitempty"`
	Location      string `json:"location,omitempty"` // innermost application frame, file:line

	// Slow request events.
	Method string `json:"method,omitempty"`
	Route  string `json:"route,omitempty"`

	// Task events.
	TaskName string `json:"task_name,omitempty"`

	// Free-form detail rendered into the outbound message.
	Detail  string            `json:"detail,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// NewException builds an exception event.
func NewException(excType, location, detail string, level AlertLevel) *Event {
	return &Event{
		Kind:          KindException,
		Level:         level,
		OccurredAt:    time.Now().UTC(),
		ExceptionType: excType,
		Location:      location,
		Detail:        detail,
	}
}

// NewSlowRequest builds a slow request event. Duration detail is carried
// in the Detail field; the route template (not the concrete URL) keeps the
// fingerprint stable.
func NewSlowRequest(method, route, detail string) *Event {
	return &Event{
		Kind:       KindSlowRequest,
		Level:      LevelWarning,
		OccurredAt: time.Now().UTC(),
		Method:     method,
		Route:      route,
		Detail:     detail,
	}
}

// NewTaskFailure builds a background task failure event.
func NewTaskFailure(taskName, detail string) *Event {
	return &Event{
		Kind:       KindTaskFailure,
		Level:      LevelCritical,
		OccurredAt: time.Now().UTC(),
		TaskName:   taskName,
		Detail:     detail,
	}
}

// NewTaskSlow builds a slow background task event.
func NewTaskSlow(taskName, detail string) *Event {
	return &Event{
		Kind:       KindTaskSlow,
		Level:      LevelWarning,
		OccurredAt: time.Now().UTC(),
		TaskName:   taskName,
		Detail:     detail,
	}
}

// NewDigest builds a daily report event. The date gives each day's digest
// its own identity, so deduplication can never suppress a new day's report.
func NewDigest(date, text string) *Event {
	return &Event{
		Kind:       KindDigest,
		Level:      LevelInfo,
		OccurredAt: time.Now().UTC(),
		TaskName:   date,
		Detail:     text,
	}
}

// Summary renders a one-line description of the event suitable for
// inclusion in a batched notification.
func (e *Event) Summary() string {
	switch e.Kind {
	case KindException:
		return e.ExceptionType + " at " + e.Location + ": " + e.Detail
	case KindSlowRequest:
		return "slow request " + e.Method + " " + e.Route + ": " + e.Detail
	case KindTaskFailure:
		return "task failed " + e.TaskName + ": " + e.Detail
	case KindTaskSlow:
		return "slow task " + e.TaskName + ": " + e.Detail
	case KindDigest:
		return e.Detail
	default:
		return e.Detail
	}
}

package events

// AlertLevel is the severity of an alert.
// CRITICAL alerts are delivered immediately and are never suppressed or
// batched. WARNING and INFO alerts are eligible for deduplication, rate
// limiting, and batching.
type AlertLevel string

const (
	LevelCritical AlertLevel = "CRITICAL"
	LevelWarning  AlertLevel = "WARNING"
	LevelInfo     AlertLevel = "INFO"
)

// ParseLevel converts a severity string to an AlertLevel.
// Unknown values are converted to WARNING so that a malformed producer
// never silently drops an alert.
func ParseLevel(s string) AlertLevel {
	switch s {
	case "CRITICAL", "critical":
		return LevelCritical
	case "WARNING", "warning":
		return LevelWarning
	case "INFO", "info":
		return LevelInfo
	default:
		return LevelWarning
	}
}

// Valid reports whether l is one of the known alert levels.
func (l AlertLevel) Valid() bool {
	switch l {
	case LevelCritical, LevelWarning, LevelInfo:
		return true
	}
	return false
}

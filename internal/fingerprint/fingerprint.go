// Package fingerprint derives the stable identity string used as the
// dedup and rate-limit key for an event. Two events with the same
// fingerprint are treated as the same recurring condition, so the inputs
// must be deterministic across processes and restarts: no timestamps, no
// object identity, no full stack traces (which vary call to call).
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"telemon/internal/events"
)

// Fingerprint returns the identity string for an event.
//
// Exceptions hash the exception type plus the innermost application frame
// so that the same failure at the same call site always collapses to one
// key. Slow requests key on method plus route template; task events key on
// the task name.
func Fingerprint(ev *events.Event) string {
	switch ev.Kind {
	case events.KindException:
		return hash(string(ev.Kind), ev.ExceptionType, ev.Location)
	case events.KindSlowRequest:
		return hash(string(ev.Kind), ev.Method, ev.Route)
	case events.KindTaskFailure, events.KindTaskSlow, events.KindDigest:
		return hash(string(ev.Kind), ev.TaskName)
	default:
		return hash(string(ev.Kind), ev.Detail)
	}
}

// hash joins the parts with a separator that cannot appear ambiguously and
// returns a short hex digest. Hashing keeps store keys bounded regardless
// of how long a route or exception location is.
func hash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

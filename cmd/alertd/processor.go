package main

import (
	"context"
	"log/slog"

	"telemon/internal/consumer"
	"telemon/internal/router"
)

// processEvents continuously reads raw events from Kafka and routes them
// through the alert pipeline.
func processEvents(ctx context.Context, c *consumer.Consumer, r *router.Router) error {
	slog.Info("Starting event processing loop")

	for {
		select {
		case <-ctx.Done():
			slog.Info("Event processing loop stopped")
			return nil
		default:
			ev, err := c.ReadEvent(ctx)
			if err != nil {
				// Check if context was cancelled
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("Failed to read event", "error", err)
				continue
			}

			res, err := r.Route(ctx, ev)
			if err != nil {
				// Delivery failures are logged and the event is dropped;
				// the sink owns any retry policy.
				slog.Error("Failed to deliver alert",
					"kind", ev.Kind,
					"level", ev.Level,
					"error", err,
				)
				continue
			}

			slog.Debug("Routed event",
				"kind", ev.Kind,
				"level", ev.Level,
				"outcome", res.Outcome,
				"reason", res.Reason,
			)
		}
	}
}

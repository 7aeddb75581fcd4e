package server

import (
	"context"
	"log/slog"

	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/notifications"
	"inkwell/internal/observability"
)

// feedPublisher delivers post events to websocket clients. With Redis the
// event goes through pub/sub and every replica's hub (this one included)
// picks it up from the subscriber; without Redis it goes straight to the
// local hub. Never both, so a client sees each event once.
type feedPublisher struct {
	notifier *notifications.Notifier
	hub      *notifications.Hub
	flags    *featureflags.Manager
	viaRedis bool
}

// Emit sends ev to userID, or to everyone when userID is 0.
func (p *feedPublisher) Emit(ctx context.Context, userID uint, ev notifications.Event) {
	if p.flags != nil && !p.flags.EnabledAnywhere(featureflags.LiveFeed) {
		return
	}
	if p.viaRedis {
		p.notifier.Emit(ctx, userID, ev)
		return
	}
	if p.hub == nil {
		return
	}

	message, err := ev.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", ev.Type), slog.String("error", err.Error()))
		return
	}
	if userID == 0 {
		p.hub.SendToAll(message)
	} else {
		p.hub.SendToUser(userID, message)
	}
	observability.WebSocketEventsTotal.WithLabelValues(ev.Type).Inc()
}

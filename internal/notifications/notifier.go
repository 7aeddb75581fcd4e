package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Redis channels carrying feed events. User channels are
// userChannelPrefix followed by the decimal user ID.
const (
	BroadcastChannel  = "feed:all"
	userChannelPrefix = "feed:user:"
)

// Notifier moves feed events through Redis pub/sub so every API replica can
// hand them to its own websocket clients. A Notifier with no client publishes
// nothing and subscribes to nothing.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel is the channel for events addressed to one user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

func channelFor(userID uint) string {
	if userID == 0 {
		return BroadcastChannel
	}
	return UserChannel(userID)
}

// Publish sends a raw payload to userID's channel, or to the broadcast
// channel when userID is 0.
func (n *Notifier) Publish(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	channel := channelFor(userID)
	if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Emit encodes and publishes ev. Failures are logged and swallowed: the
// request that produced the event has already succeeded.
func (n *Notifier) Emit(ctx context.Context, userID uint, ev Event) {
	payload, err := ev.Encode()
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode event",
			slog.String("type", ev.Type), slog.String("error", err.Error()))
		return
	}
	if err := n.Publish(ctx, userID, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", ev.Type), slog.String("error", err.Error()))
		return
	}
	observability.WebSocketEventsTotal.WithLabelValues(ev.Type).Inc()
}

// MessageHandler receives one published payload and the channel it came on.
type MessageHandler func(channel, payload string)

// Subscribe listens on the broadcast channel and every user channel. The
// subscription is confirmed before Subscribe returns; delivery then runs in
// the background until ctx ends. A panicking handler loses only its message.
func (n *Notifier) Subscribe(ctx context.Context, handle MessageHandler) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to feed channels: %w", err)
	}

	go func() {
		defer func() { _ = sub.Close() }()
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				deliver(handle, msg)
			}
		}
	}()
	return nil
}

func deliver(handle MessageHandler, msg *redis.Message) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("feed handler panicked",
				slog.String("channel", msg.Channel),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	handle(msg.Channel, msg.Payload)
}

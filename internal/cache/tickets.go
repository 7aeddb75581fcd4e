package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrTicketInvalid is returned for unknown, expired or already used tickets.
var ErrTicketInvalid = errors.New("invalid or expired ticket")

// ErrUnavailable is returned when an operation needs Redis and none is configured.
var ErrUnavailable = errors.New("redis unavailable")

// IssueWSTicket stores a short-lived single-use ticket for a websocket upgrade.
func IssueWSTicket(ctx context.Context, userID uint) (string, error) {
	if client == nil {
		return "", ErrUnavailable
	}
	ticket := uuid.NewString()
	if err := client.Set(ctx, WSTicketKey(ticket), userID, WSTicketTTL).Err(); err != nil {
		return "", err
	}
	return ticket, nil
}

// ConsumeWSTicket atomically reads and deletes a ticket, returning its user id.
func ConsumeWSTicket(ctx context.Context, ticket string) (uint, error) {
	if client == nil {
		return 0, ErrUnavailable
	}
	if ticket == "" {
		return 0, ErrTicketInvalid
	}
	raw, err := client.GetDel(ctx, WSTicketKey(ticket)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrTicketInvalid
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrTicketInvalid
	}
	return uint(id), nil
}

package cache

import (
	"context"
	"time"
)

// Keys and lifetimes of everything this service stores in Redis.
const (
	CategoryListKey = "categories:all"
	wsTicketPrefix  = "ws_ticket:"

	CategoryListTTL = 10 * time.Minute
	WSTicketTTL     = 30 * time.Second
)

// WSTicketKey is the key holding the user id a websocket ticket was issued to.
func WSTicketKey(ticket string) string {
	return wsTicketPrefix + ticket
}

// Invalidate deletes a key, ignoring a missing client.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateCategories drops the cached category list.
func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoryListKey)
}

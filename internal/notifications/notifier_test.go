package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), 1, "payload"))
	assert.NoError(t, n.Publish(context.Background(), 0, "payload"))
	assert.NoError(t, n.Subscribe(context.Background(), func(string, string) {}))
	assert.NotPanics(t, func() { n.Emit(context.Background(), 1, NewEvent(EventPostLiked, nil)) })
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "feed:user:1", channelFor(1))
	assert.Equal(t, "feed:user:100", UserChannel(100))
	assert.Equal(t, BroadcastChannel, channelFor(0))
}

func TestEvent_Encode(t *testing.T) {
	raw, err := NewEvent(EventPostLiked, PostLikedPayload{PostID: 3, UserID: 4, LikeCount: 2}).Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.Equal(t, "post_liked", decoded["type"])
	payload := decoded["payload"].(map[string]any)
	assert.EqualValues(t, 3, payload["postId"])
	assert.EqualValues(t, 2, payload["likeCount"])
	assert.NotEmpty(t, decoded["timestamp"])
}

func TestHub_ListenToDeliversPublishedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	author, err := hub.Register(11, nil)
	require.NoError(t, err)
	reader, err := hub.Register(12, nil)
	require.NoError(t, err)

	n := NewNotifier(rdb)
	require.NoError(t, hub.ListenTo(ctx, n))

	n.Emit(ctx, 11, NewEvent(EventCommentAdded, CommentAddedPayload{PostID: 1, CommentID: 2, UserID: 12, Content: "nice"}))
	n.Emit(ctx, 0, NewEvent(EventPostPublished, PostPublishedPayload{PostID: 1, Slug: "hello", Title: "Hello"}))

	var authorMsgs []string
	assert.Eventually(t, func() bool {
		authorMsgs = append(authorMsgs, drain(author)...)
		return len(authorMsgs) == 2
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, authorMsgs[0], EventCommentAdded)
	assert.Contains(t, authorMsgs[1], EventPostPublished)

	var readerMsgs []string
	assert.Eventually(t, func() bool {
		readerMsgs = append(readerMsgs, drain(reader)...)
		return len(readerMsgs) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, readerMsgs[0], EventPostPublished)
}

func TestNotifier_SubscriberStopsOnCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())

	payloads := make(chan string, 4)
	require.NoError(t, n.Subscribe(ctx, func(_ string, payload string) {
		payloads <- payload
	}))

	require.NoError(t, n.Publish(context.Background(), 1, "before-cancel"))
	assert.Eventually(t, func() bool { return len(payloads) == 1 }, time.Second, 10*time.Millisecond)
	<-payloads

	cancel()
	time.Sleep(50 * time.Millisecond)

	_ = n.Publish(context.Background(), 1, "after-cancel")
	assert.Never(t, func() bool { return len(payloads) > 0 }, 200*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_HandlerPanicDoesNotStopDelivery(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	got := make(chan string, 4)
	require.NoError(t, n.Subscribe(ctx, func(channel, payload string) {
		if payload == "boom" {
			panic("handler failure")
		}
		got <- channel
	}))

	require.NoError(t, n.Publish(ctx, 0, "boom"))
	require.NoError(t, n.Publish(ctx, 7, "fine"))

	select {
	case channel := <-got:
		assert.Equal(t, "feed:user:7", channel)
	case <-time.After(time.Second):
		t.Fatal("message after a panic was not delivered")
	}
}

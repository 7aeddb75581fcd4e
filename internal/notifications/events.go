package notifications

import (
	"encoding/json"
	"time"
)

// Event types pushed over the live feed.
const (
	EventPostPublished = "post_published"
	EventPostLiked     = "post_liked"
	EventCommentAdded  = "comment_added"
)

// Event is the JSON frame written to websocket clients.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Encode renders the event as a JSON string.
func (e Event) Encode() (string, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PostPublishedPayload announces a newly visible post.
type PostPublishedPayload struct {
	PostID   uint   `json:"postId"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	AuthorID uint   `json:"authorId"`
}

// PostLikedPayload tells an author someone liked their post.
type PostLikedPayload struct {
	PostID    uint  `json:"postId"`
	UserID    uint  `json:"userId"`
	LikeCount int64 `json:"likeCount"`
}

// CommentAddedPayload tells an author about a new comment.
type CommentAddedPayload struct {
	PostID    uint   `json:"postId"`
	CommentID uint   `json:"commentId"`
	UserID    uint   `json:"userId"`
	Content   string `json:"content"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}
}

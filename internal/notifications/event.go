// Package notifications announces new posts to websocket readers, a Telegram
// channel and an e-mail list. Delivery is asynchronous and never fails a write.
package notifications

import (
	"context"
	"time"

	"inkwell/internal/models"
)

// EventPostCreated is published once a new post has been committed.
const EventPostCreated = "post.created"

// Event is the payload carried on the bus.
type Event struct {
	Type      string    `json:"type"`
	PostID    uint      `json:"postId"`
	AuthorID  uint      `json:"authorId"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPostCreated builds the event announcing post.
func NewPostCreated(post *models.Post) Event {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	return Event{
		Type:      EventPostCreated,
		PostID:    post.ID,
		AuthorID:  post.UserID,
		Title:     post.Title,
		Tags:      tags,
		CreatedAt: post.CreatedAt,
	}
}

// Bus moves events from publishers to a subscriber.
type Bus interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe starts delivering events to handle until ctx is cancelled.
	Subscribe(ctx context.Context, handle func(Event)) error
}

// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package events

import (
	"context"
	"sync"

	commentmodels "github.com/tessera-social/tessera/comments/models"
	notificationmodels "github.com/tessera-social/tessera/notifications/models"
	postmodels "github.com/tessera-social/tessera/posts/models"
	reactionmodels "github.com/tessera-social/tessera/reactions/models"
)

// Action identifies a committed mutation.
type Action string

const (
	ActionPostCreated Action = "post.created"
	ActionPostUpdated Action = "post.updated"
	ActionPostDeleted Action = "post.deleted"

	ActionCommentCreated Action = "comment.created"
	ActionCommentUpdated Action = "comment.updated"
	ActionCommentDeleted Action = "comment.deleted"

	ActionReactionAdded   Action = "reaction.added"
	ActionReactionChanged Action = "reaction.changed"
	ActionReactionRemoved Action = "reaction.removed"

	ActionNotificationCreated Action = "notification.created"
	ActionNotificationRead    Action = "notification.read"
	ActionNotificationAllRead Action = "notification.all_read"
)

// Event is the snapshot a service enqueues inside its transaction. The
// fields carry committed state; hooks must not reach back into the
// transaction that produced them. Which fields are set depends on Action:
//
//   - post.*: Post (pre-delete snapshot for post.deleted)
//   - comment.created/updated: Comment plus the refreshed root Post;
//     ParentComment when the parent is a comment
//   - comment.deleted: DeletedComments (the whole subtree), ParentComment,
//     and the refreshed root Post
//   - reaction.*: Reaction plus the refreshed target (Post or Comment)
//   - notification.created: Notification
//   - notification.read / all_read: RecipientID and the ids of rows that
//     actually changed
type Event struct {
	Action  Action
	ActorID int64

	Post            *postmodels.Post
	Comment         *commentmodels.Comment
	ParentComment   *commentmodels.Comment
	DeletedComments []commentmodels.Comment

	Reaction       *reactionmodels.Reaction
	ReactionAction string

	Notification    *notificationmodels.Notification
	NotificationIDs []int64
	RecipientID     int64
}

// Buffer accumulates events during a transaction. The transaction manager
// drains it after COMMIT succeeds and hands the batch to the registered
// hooks; a rolled-back transaction's buffer is simply discarded.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

func (b *Buffer) add(e Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

// Drain returns the accumulated events and resets the buffer.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	return events
}

type bufferKey struct{}

// WithBuffer attaches an event buffer to the context. The transaction
// manager installs one per transaction.
func WithBuffer(ctx context.Context, b *Buffer) context.Context {
	return context.WithValue(ctx, bufferKey{}, b)
}

// Emit records an event on the buffer carried by ctx. It reports false
// when ctx carries no buffer, which means the caller is not inside a
// managed transaction and the event has nowhere to go.
func Emit(ctx context.Context, e Event) bool {
	b, ok := ctx.Value(bufferKey{}).(*Buffer)
	if !ok || b == nil {
		return false
	}
	b.add(e)
	return true
}

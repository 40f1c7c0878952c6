// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package fanout translates committed domain events into broker publishes.
// It owns no state: each event maps deterministically onto a topic set and
// a broadcast envelope.
package fanout

import (
	"context"
	"encoding/json"

	commentmodels "github.com/tessera-social/tessera/comments/models"
	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/pkg/log"
	"github.com/tessera-social/tessera/realtime/broker"
	reactionmodels "github.com/tessera-social/tessera/reactions/models"
)

// Entity kinds carried in broadcast envelopes.
const (
	EntityPost         = "post"
	EntityComment      = "comment"
	EntityNotification = "notification"
)

// FanOut is the commit hook that pushes committed changes to subscribers.
type FanOut struct {
	broker broker.Broker
}

// New creates the fan-out hook on top of a broker.
func New(b broker.Broker) *FanOut {
	return &FanOut{broker: b}
}

// HandleEvent is the commit hook entry point. Publish failures never
// propagate; the broker logs them and clients resync over REST.
func (f *FanOut) HandleEvent(ctx context.Context, evt events.Event) error {
	switch evt.Action {
	case events.ActionPostCreated:
		f.publishPost(ctx, evt, broker.ActionNew, broker.TopicPosts)
	case events.ActionPostUpdated:
		f.publishPost(ctx, evt, broker.ActionUpdate,
			broker.TopicPosts, broker.TopicPostComments(evt.Post.ID))
	case events.ActionPostDeleted:
		f.publish(ctx, broker.Envelope{
			Action:     broker.ActionDelete,
			EntityKind: EntityPost,
			Body:       mustJSON(map[string]int64{"id": evt.Post.ID}),
		}, broker.TopicPosts)

	case events.ActionCommentCreated:
		f.publishComment(ctx, evt, broker.ActionNew)
	case events.ActionCommentUpdated:
		f.publishComment(ctx, evt, broker.ActionUpdate)
	case events.ActionCommentDeleted:
		f.publishCommentDeleted(ctx, evt)

	case events.ActionReactionAdded, events.ActionReactionChanged, events.ActionReactionRemoved:
		f.publishReaction(ctx, evt)

	case events.ActionNotificationCreated:
		f.publish(ctx, broker.Envelope{
			Action:     broker.ActionNotificationNew,
			EntityKind: EntityNotification,
			Body:       mustJSON(evt.Notification.View()),
		}, broker.TopicUserNotifications(evt.RecipientID))
	case events.ActionNotificationRead:
		body := map[string]interface{}{}
		if len(evt.NotificationIDs) > 0 {
			body["notification_id"] = evt.NotificationIDs[0]
		}
		f.publish(ctx, broker.Envelope{
			Action:     broker.ActionNotificationRead,
			EntityKind: EntityNotification,
			Body:       mustJSON(body),
		}, broker.TopicUserNotifications(evt.RecipientID))
	case events.ActionNotificationAllRead:
		f.publish(ctx, broker.Envelope{
			Action:     broker.ActionNotificationAllRead,
			EntityKind: EntityNotification,
			Body:       mustJSON(map[string]bool{"all": true}),
		}, broker.TopicUserNotifications(evt.RecipientID))
	}
	return nil
}

func (f *FanOut) publishPost(ctx context.Context, evt events.Event, action string, topics ...string) {
	if evt.Post == nil {
		return
	}
	f.publish(ctx, broker.Envelope{
		Action:     action,
		EntityKind: EntityPost,
		Body:       mustJSON(evt.Post.View()),
	}, topics...)
}

// publishComment pushes the comment view to its thread topics and a
// refreshed post view to the global feed so counters and previews stay
// current everywhere.
func (f *FanOut) publishComment(ctx context.Context, evt events.Event, action string) {
	if evt.Comment == nil || evt.Post == nil {
		return
	}

	topics := []string{broker.TopicPostComments(evt.Post.ID)}
	if evt.ParentComment != nil {
		topics = append(topics, broker.TopicCommentReplies(evt.ParentComment.ID))
	}
	f.publish(ctx, broker.Envelope{
		Action:     action,
		EntityKind: EntityComment,
		Body:       mustJSON(evt.Comment.View()),
	}, topics...)

	f.publish(ctx, broker.Envelope{
		Action:     broker.ActionUpdate,
		EntityKind: EntityPost,
		Body:       mustJSON(evt.Post.View()),
	}, broker.TopicPosts)
}

// publishCommentDeleted emits one delete envelope per removed node, the
// deleted root included, so thread subscribers drop every comment without
// diffing a batch.
func (f *FanOut) publishCommentDeleted(ctx context.Context, evt events.Event) {
	if evt.Comment == nil || evt.Post == nil {
		return
	}

	deleted := evt.DeletedComments
	if len(deleted) == 0 {
		deleted = []commentmodels.Comment{*evt.Comment}
	}

	topics := []string{broker.TopicPostComments(evt.Post.ID)}
	if evt.ParentComment != nil {
		topics = append(topics, broker.TopicCommentReplies(evt.ParentComment.ID))
	}
	for i := range deleted {
		f.publish(ctx, broker.Envelope{
			Action:     broker.ActionDelete,
			EntityKind: EntityComment,
			Body:       mustJSON(map[string]int64{"id": deleted[i].ID}),
		}, topics...)
	}

	f.publish(ctx, broker.Envelope{
		Action:     broker.ActionUpdate,
		EntityKind: EntityPost,
		Body:       mustJSON(evt.Post.View()),
	}, broker.TopicPosts)
}

// publishReaction pushes the refreshed target view with the toggle
// outcome. Post reactions go to the global feed; comment reactions go to
// the root post's thread.
func (f *FanOut) publishReaction(ctx context.Context, evt events.Event) {
	if evt.Reaction == nil {
		return
	}

	switch evt.Reaction.TargetType {
	case reactionmodels.TargetTypePost:
		if evt.Post == nil {
			return
		}
		f.publish(ctx, broker.Envelope{
			Action:         broker.ActionReactionUpdate,
			EntityKind:     EntityPost,
			ReactionAction: evt.ReactionAction,
			Body:           mustJSON(evt.Post.View()),
		}, broker.TopicPosts)
	case reactionmodels.TargetTypeComment:
		if evt.Comment == nil {
			return
		}
		f.publish(ctx, broker.Envelope{
			Action:         broker.ActionReactionUpdate,
			EntityKind:     EntityComment,
			ReactionAction: evt.ReactionAction,
			Body:           mustJSON(evt.Comment.View()),
		}, broker.TopicPostComments(evt.Comment.RootPostID))
	}
}

func (f *FanOut) publish(ctx context.Context, envelope broker.Envelope, topics ...string) {
	if envelope.Body == nil {
		return
	}
	for _, topic := range topics {
		f.broker.Publish(ctx, topic, envelope)
	}
}

// mustJSON serializes a broadcast body. The views are plain structs, so a
// marshal failure is a programming error; it is reported as a nil body
// which publish then skips.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("fanout marshal: %v", err)
		return nil
	}
	return data
}

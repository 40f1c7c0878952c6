// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package broker is the pub/sub fabric between committed mutations and live
// websocket sessions. Two drivers exist: an in-process fabric for a single
// instance and a Redis backplane where every publish round-trips through
// Redis so all processes observe one arrival order per topic.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TopicPosts carries every post-level change on the platform.
const TopicPosts = "posts"

// TopicPostComments is the thread topic for direct comments on a post.
func TopicPostComments(postID int64) string {
	return fmt.Sprintf("post:%d/comments", postID)
}

// TopicCommentReplies is the thread topic for replies to a comment.
func TopicCommentReplies(commentID int64) string {
	return fmt.Sprintf("comment:%d/replies", commentID)
}

// TopicUserNotifications is the private per-user notification topic.
func TopicUserNotifications(userID int64) string {
	return fmt.Sprintf("user:%d/notifications", userID)
}

// Envelope actions.
const (
	ActionNew                 = "new"
	ActionUpdate              = "update"
	ActionDelete              = "delete"
	ActionReactionUpdate      = "reaction_update"
	ActionNotificationNew     = "notification_new"
	ActionNotificationRead    = "notification_read"
	ActionNotificationAllRead = "notification_all_read"
	ActionError               = "error"
)

// Envelope is the broadcast unit. Body is the already-serialized entity
// view; envelopes never carry viewer-specific fields. ReactionAction is
// set only on reaction_update envelopes and names what the toggle did.
type Envelope struct {
	Action         string          `json:"action"`
	EntityKind     string          `json:"entity_kind"`
	ReactionAction string          `json:"reaction_action,omitempty"`
	Body           json.RawMessage `json:"body"`
}

// Critical reports whether the envelope must not be shed under
// backpressure. Notification envelopes are critical; content traffic can
// be dropped because clients resync it over REST.
func (e Envelope) Critical() bool {
	return strings.HasPrefix(e.Action, "notification_")
}

// Handler receives one envelope on a broker-owned worker goroutine.
type Handler func(topic string, envelope Envelope)

// Broker is the pub/sub fabric. Publish is best-effort: backplane failures
// are logged, never propagated. Unsubscribe is idempotent.
type Broker interface {
	Publish(ctx context.Context, topic string, envelope Envelope)
	Subscribe(topic string, handler Handler) (uint64, error)
	Unsubscribe(id uint64)
	Close() error
}

var (
	postCommentsPattern      = regexp.MustCompile(`^post:(\d+)/comments$`)
	commentRepliesPattern    = regexp.MustCompile(`^comment:(\d+)/replies$`)
	userNotificationsPattern = regexp.MustCompile(`^user:(\d+)/notifications$`)
)

// ValidTopic reports whether the string names any subscribable topic.
func ValidTopic(topic string) bool {
	return topic == TopicPosts ||
		postCommentsPattern.MatchString(topic) ||
		commentRepliesPattern.MatchString(topic) ||
		userNotificationsPattern.MatchString(topic)
}

// CanSubscribe checks topic authorization for a user: content topics are
// open to everyone, notification topics only to their owner.
func CanSubscribe(topic string, userID int64) bool {
	if m := userNotificationsPattern.FindStringSubmatch(topic); m != nil {
		owner, err := strconv.ParseInt(m[1], 10, 64)
		return err == nil && owner == userID
	}
	return ValidTopic(topic)
}

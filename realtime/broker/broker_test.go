package broker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicNames(t *testing.T) {
	assert.Equal(t, "post:12/comments", TopicPostComments(12))
	assert.Equal(t, "comment:7/replies", TopicCommentReplies(7))
	assert.Equal(t, "user:3/notifications", TopicUserNotifications(3))
}

func TestValidTopic(t *testing.T) {
	valid := []string{
		"posts",
		"post:1/comments",
		"comment:42/replies",
		"user:9/notifications",
	}
	for _, topic := range valid {
		assert.True(t, ValidTopic(topic), topic)
	}

	invalid := []string{
		"",
		"post",
		"posts/extra",
		"post:abc/comments",
		"post:1/replies",
		"comment:1/comments",
		"user:1/notifications/extra",
		"_session",
	}
	for _, topic := range invalid {
		assert.False(t, ValidTopic(topic), topic)
	}
}

func TestCanSubscribe(t *testing.T) {
	// Content topics are open to everyone.
	assert.True(t, CanSubscribe("posts", 1))
	assert.True(t, CanSubscribe("post:5/comments", 1))
	assert.True(t, CanSubscribe("comment:5/replies", 99))

	// Notification topics belong to their owner.
	assert.True(t, CanSubscribe("user:7/notifications", 7))
	assert.False(t, CanSubscribe("user:7/notifications", 8))
	assert.False(t, CanSubscribe("user:7/notifications", 0))

	assert.False(t, CanSubscribe("bogus", 1))
}

func TestEnvelope_Critical(t *testing.T) {
	critical := []string{ActionNotificationNew, ActionNotificationRead, ActionNotificationAllRead}
	for _, action := range critical {
		assert.True(t, Envelope{Action: action}.Critical(), action)
	}

	droppable := []string{ActionNew, ActionUpdate, ActionDelete, ActionReactionUpdate, ActionError}
	for _, action := range droppable {
		assert.False(t, Envelope{Action: action}.Critical(), action)
	}
}

func TestEnvelope_JSONShape(t *testing.T) {
	env := Envelope{
		Action:     ActionReactionUpdate,
		EntityKind:     "post",
		ReactionAction: "added",
		Body:           json.RawMessage(`{"id":1}`),
	}
	data, err := json.Marshal(env)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"action":"reaction_update","entity_kind":"post","reaction_action":"added","body":{"id":1}}`, string(data))

	// reaction_action stays off the wire when unset.
	env.ReactionAction = ""
	data, err = json.Marshal(env)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "reaction_action")
}

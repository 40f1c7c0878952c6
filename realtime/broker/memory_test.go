package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector is a test handler that records deliveries.
type collector struct {
	mu        sync.Mutex
	envelopes []Envelope
	topics    []string
}

func (c *collector) handle(topic string, envelope Envelope) {
	c.mu.Lock()
	c.topics = append(c.topics, topic)
	c.envelopes = append(c.envelopes, envelope)
	c.mu.Unlock()
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envelopes)
}

func (c *collector) waitFor(t *testing.T, n int) []Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		if len(c.envelopes) >= n {
			out := append([]Envelope(nil), c.envelopes...)
			c.mu.Unlock()
			return out
		}
		c.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d envelopes, got %d", n, c.count())
	return nil
}

func envelope(action string, id int) Envelope {
	return Envelope{
		Action:     action,
		EntityKind: "post",
		Body:       json.RawMessage(fmt.Sprintf(`{"id":%d}`, id)),
	}
}

func TestMemory_PublishDeliversInOrder(t *testing.T) {
	m := NewMemory(16)
	defer m.Close()

	c := &collector{}
	_, err := m.Subscribe(TopicPosts, c.handle)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		m.Publish(context.Background(), TopicPosts, envelope(ActionNew, i))
	}

	got := c.waitFor(t, 5)
	for i, env := range got {
		assert.JSONEq(t, fmt.Sprintf(`{"id":%d}`, i), string(env.Body))
	}
}

func TestMemory_TopicIsolation(t *testing.T) {
	m := NewMemory(16)
	defer m.Close()

	posts := &collector{}
	thread := &collector{}
	_, err := m.Subscribe(TopicPosts, posts.handle)
	require.NoError(t, err)
	_, err = m.Subscribe(TopicPostComments(1), thread.handle)
	require.NoError(t, err)

	m.Publish(context.Background(), TopicPosts, envelope(ActionNew, 1))
	m.Publish(context.Background(), TopicPostComments(1), envelope(ActionNew, 2))
	m.Publish(context.Background(), TopicPostComments(2), envelope(ActionNew, 3))

	posts.waitFor(t, 1)
	got := thread.waitFor(t, 1)
	assert.JSONEq(t, `{"id":2}`, string(got[0].Body))

	// The unrelated thread's envelope never arrives.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, thread.count())
}

func TestMemory_MultipleSubscribersEachReceive(t *testing.T) {
	m := NewMemory(16)
	defer m.Close()

	first := &collector{}
	second := &collector{}
	_, err := m.Subscribe(TopicPosts, first.handle)
	require.NoError(t, err)
	_, err = m.Subscribe(TopicPosts, second.handle)
	require.NoError(t, err)

	m.Publish(context.Background(), TopicPosts, envelope(ActionNew, 1))

	first.waitFor(t, 1)
	second.waitFor(t, 1)
}

func TestMemory_Unsubscribe(t *testing.T) {
	m := NewMemory(16)
	defer m.Close()

	c := &collector{}
	id, err := m.Subscribe(TopicPosts, c.handle)
	require.NoError(t, err)

	m.Publish(context.Background(), TopicPosts, envelope(ActionNew, 1))
	c.waitFor(t, 1)

	m.Unsubscribe(id)
	m.Publish(context.Background(), TopicPosts, envelope(ActionNew, 2))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.count())

	// Unknown ids are a no-op.
	m.Unsubscribe(id)
	m.Unsubscribe(99999)
}

func TestMemory_NilHandlerRejected(t *testing.T) {
	m := NewMemory(16)
	defer m.Close()

	_, err := m.Subscribe(TopicPosts, nil)
	assert.Error(t, err)
}

func TestMemory_SubscribeAfterCloseFails(t *testing.T) {
	m := NewMemory(16)
	require.NoError(t, m.Close())

	_, err := m.Subscribe(TopicPosts, (&collector{}).handle)
	assert.Error(t, err)

	// Close is idempotent.
	assert.NoError(t, m.Close())
}

func TestMemory_PublishWithNoSubscribers(t *testing.T) {
	m := NewMemory(16)
	defer m.Close()

	// Nothing to deliver to; must not panic or block.
	m.Publish(context.Background(), TopicPosts, envelope(ActionNew, 1))
}

// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package broker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/tessera-social/tessera/internal/pkg/log"
)

const defaultQueueSize = 128

type delivery struct {
	topic    string
	envelope Envelope
}

type memorySubscription struct {
	id      uint64
	topic   string
	handler Handler
	ch      chan delivery
	done    chan struct{}
}

// Memory is the in-process fabric. Each subscription owns a buffered
// channel drained by its own worker goroutine, so a slow handler never
// blocks publishers or its topic peers. A full subscriber queue sheds the
// newest envelope; the session mailbox above carries the real
// backpressure policy.
type Memory struct {
	queueSize int

	mu      sync.RWMutex
	byTopic map[string]map[uint64]*memorySubscription
	byID    map[uint64]*memorySubscription
	closed  bool

	nextID atomic.Uint64
	wg     sync.WaitGroup
}

// NewMemory creates the in-process broker.
func NewMemory(queueSize int) *Memory {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Memory{
		queueSize: queueSize,
		byTopic:   make(map[string]map[uint64]*memorySubscription),
		byID:      make(map[uint64]*memorySubscription),
	}
}

// Publish delivers the envelope to every current subscriber of the topic.
func (m *Memory) Publish(_ context.Context, topic string, envelope Envelope) {
	m.mu.RLock()
	subs := make([]*memorySubscription, 0, len(m.byTopic[topic]))
	for _, sub := range m.byTopic[topic] {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.ch <- delivery{topic: topic, envelope: envelope}:
		default:
			log.Warn("broker subscriber %d on %s is full, dropping %s", sub.id, topic, envelope.Action)
		}
	}
}

// Subscribe registers a handler and starts its worker.
func (m *Memory) Subscribe(topic string, handler Handler) (uint64, error) {
	if handler == nil {
		return 0, errors.New("handler is required")
	}

	sub := &memorySubscription{
		id:      m.nextID.Add(1),
		topic:   topic,
		handler: handler,
		ch:      make(chan delivery, m.queueSize),
		done:    make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errors.New("broker is closed")
	}
	if m.byTopic[topic] == nil {
		m.byTopic[topic] = make(map[uint64]*memorySubscription)
	}
	m.byTopic[topic][sub.id] = sub
	m.byID[sub.id] = sub
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(sub)
	return sub.id, nil
}

// Unsubscribe removes the subscription and stops its worker. Unknown ids
// are a no-op.
func (m *Memory) Unsubscribe(id uint64) {
	m.remove(id)
}

// remove unregisters the subscription and reports which topic it was on;
// the Redis driver uses the topic to release its backplane channel.
func (m *Memory) remove(id uint64) string {
	m.mu.Lock()
	sub, ok := m.byID[id]
	if !ok {
		m.mu.Unlock()
		return ""
	}
	delete(m.byID, id)
	delete(m.byTopic[sub.topic], id)
	if len(m.byTopic[sub.topic]) == 0 {
		delete(m.byTopic, sub.topic)
	}
	m.mu.Unlock()

	close(sub.done)
	return sub.topic
}

func (m *Memory) run(sub *memorySubscription) {
	defer m.wg.Done()
	for {
		select {
		case d := <-sub.ch:
			sub.handler(d.topic, d.envelope)
		case <-sub.done:
			return
		}
	}
}

// Close stops every subscription worker.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*memorySubscription, 0, len(m.byID))
	for _, sub := range m.byID {
		subs = append(subs, sub)
	}
	m.byID = make(map[uint64]*memorySubscription)
	m.byTopic = make(map[string]map[uint64]*memorySubscription)
	m.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
	m.wg.Wait()
	return nil
}

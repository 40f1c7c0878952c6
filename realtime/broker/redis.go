// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tessera-social/tessera/internal/pkg/log"
)

const defaultPublishTimeout = 2 * time.Second

// wireMessage is what travels over the backplane. The topic rides inside
// the payload as well as in the channel name, so a receiver never has to
// strip the channel prefix.
type wireMessage struct {
	Topic    string   `json:"topic"`
	Envelope Envelope `json:"envelope"`
}

// Redis is the multi-instance driver. Every publish goes out through Redis
// and comes back through the subscription loop, including on the
// publishing instance, so all processes observe the same arrival order per
// topic. The embedded Memory fabric handles local dispatch. The go-redis
// PubSub reconnects on its own with backoff; envelopes published while a
// receiver is down are lost, which is acceptable because clients resync
// over REST.
type Redis struct {
	client         *redis.Client
	local          *Memory
	pubsub         *redis.PubSub
	prefix         string
	publishTimeout time.Duration

	mu        sync.Mutex
	topicRefs map[string]int
	closed    bool
}

// NewRedis connects the backplane and starts the receive loop.
func NewRedis(redisURL, channelPrefix string, queueSize int, publishTimeout time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	r := &Redis{
		client:         client,
		local:          NewMemory(queueSize),
		pubsub:         client.Subscribe(context.Background()),
		prefix:         channelPrefix,
		publishTimeout: publishTimeout,
		topicRefs:      make(map[string]int),
	}
	go r.receive()
	return r, nil
}

// Publish sends the envelope through the backplane. Local subscribers see
// it when it comes back; a backplane failure is logged and the envelope is
// lost.
func (r *Redis) Publish(ctx context.Context, topic string, envelope Envelope) {
	payload, err := json.Marshal(wireMessage{Topic: topic, Envelope: envelope})
	if err != nil {
		log.Error("broker publish marshal on %s: %v", topic, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
	defer cancel()
	if err := r.client.Publish(pubCtx, r.prefix+topic, payload).Err(); err != nil {
		log.Error("broker publish on %s: %v", topic, err)
	}
}

// Subscribe registers the handler locally and joins the backplane channel
// on the topic's first subscriber.
func (r *Redis) Subscribe(topic string, handler Handler) (uint64, error) {
	id, err := r.local.Subscribe(topic, handler)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.topicRefs[topic]++
	if r.topicRefs[topic] == 1 {
		if err := r.pubsub.Subscribe(context.Background(), r.prefix+topic); err != nil {
			r.topicRefs[topic]--
			r.local.Unsubscribe(id)
			return 0, fmt.Errorf("backplane subscribe on %s: %w", topic, err)
		}
	}
	return id, nil
}

// Unsubscribe removes the subscription and leaves the backplane channel
// when the topic's last subscriber is gone.
func (r *Redis) Unsubscribe(id uint64) {
	topic := r.local.remove(id)
	if topic == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.topicRefs[topic]--
	if r.topicRefs[topic] <= 0 {
		delete(r.topicRefs, topic)
		if err := r.pubsub.Unsubscribe(context.Background(), r.prefix+topic); err != nil {
			log.Warn("backplane unsubscribe on %s: %v", topic, err)
		}
	}
}

func (r *Redis) receive() {
	for msg := range r.pubsub.Channel() {
		var wire wireMessage
		if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
			log.Warn("broker dropped malformed backplane payload on %s: %v", msg.Channel, err)
			continue
		}
		r.local.Publish(context.Background(), wire.Topic, wire.Envelope)
	}
}

// Close tears down the backplane connection and the local fabric.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	// Closing the PubSub ends the receive loop's channel.
	if err := r.pubsub.Close(); err != nil {
		log.Warn("backplane close: %v", err)
	}
	r.local.Close()
	return r.client.Close()
}

// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/gofrs/uuid"

	"github.com/tessera-social/tessera/internal/pkg/log"
	"github.com/tessera-social/tessera/internal/types"
	"github.com/tessera-social/tessera/realtime/broker"
)

// sessionTopic is the pseudo-topic protocol errors are reported on.
const sessionTopic = "_session"

// clientCommand is one inbound frame. Command selects which of the other
// fields matter.
type clientCommand struct {
	Command        string `json:"command"`
	Topic          string `json:"topic,omitempty"`
	NotificationID int64  `json:"notification_id,omitempty"`
	Token          string `json:"token,omitempty"`
}

// serverFrame is one outbound frame.
type serverFrame struct {
	Topic    string          `json:"topic"`
	Envelope broker.Envelope `json:"envelope"`
}

// session is one live websocket connection. The reader goroutine owns the
// subscription set and processes commands one at a time; the writer
// goroutine owns the transport and the heartbeat. Broker workers cross
// into the session only through the mailbox.
type session struct {
	id     string
	user   types.UserContext
	conn   *websocket.Conn
	hub    *Hub
	box    *mailbox
	notify chan struct{}
	done   chan struct{}

	subsMu sync.Mutex
	subs   map[string]uint64

	// credMu guards the access-credential expiry the session lives under.
	// The reader extends it on authenticate; the writer's timer enforces it.
	credMu      sync.Mutex
	credExpiry  time.Time
	reauthAsked bool

	closeOnce sync.Once
}

func newSession(hub *Hub, conn *websocket.Conn, user types.UserContext, credExpiry time.Time) *session {
	id, _ := uuid.NewV4()
	return &session{
		id:         id.String(),
		user:       user,
		conn:       conn,
		hub:        hub,
		box:        newMailbox(hub.queueSize),
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		subs:       make(map[string]uint64),
		credExpiry: credExpiry,
	}
}

// run drives the session to completion. It returns when the connection
// drops, the heartbeat lapses, the access credential expires without a
// re-authentication, or the mailbox overflows with critical envelopes.
func (s *session) run() {
	defer s.teardown()

	// Every session implicitly follows its own notification stream.
	if err := s.subscribe(broker.TopicUserNotifications(s.user.UserID)); err != nil {
		log.Error("session %s implicit subscription: %v", s.id, err)
		return
	}

	go s.writeLoop()
	s.readLoop()
}

// deliver is the broker handler; it runs on a broker worker goroutine.
func (s *session) deliver(topic string, envelope broker.Envelope) {
	select {
	case <-s.done:
		return
	default:
	}

	if !s.box.push(serverFrame{Topic: topic, Envelope: envelope}) {
		// Mailbox full of critical envelopes. Closing is the honest move:
		// the client must resynchronize over REST anyway.
		log.Warn("session %s overflowed with critical envelopes, closing", s.id)
		s.close(websocket.ClosePolicyViolation, "overloaded, resync over REST")
		return
	}
	s.wake()
}

func (s *session) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *session) readLoop() {
	limit := 2 * s.hub.heartbeat
	s.conn.SetReadDeadline(time.Now().Add(limit))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(limit))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(limit))

		var cmd clientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			s.sendError("malformed command")
			continue
		}
		s.handleCommand(cmd)
	}
}

func (s *session) handleCommand(cmd clientCommand) {
	ctx, cancel := context.WithTimeout(context.Background(), s.hub.commandTimeout)
	defer cancel()

	switch cmd.Command {
	case "subscribe":
		if !broker.CanSubscribe(cmd.Topic, s.user.UserID) {
			s.sendError("cannot subscribe to " + cmd.Topic)
			return
		}
		if err := s.subscribe(cmd.Topic); err != nil {
			s.sendError("subscribe failed")
		}
	case "unsubscribe":
		s.unsubscribe(cmd.Topic)
	case "mark_read":
		if err := s.hub.notifications.MarkRead(ctx, cmd.NotificationID, &s.user); err != nil {
			s.sendError("mark_read failed")
		}
	case "mark_all_read":
		if _, err := s.hub.notifications.MarkAllRead(ctx, &s.user); err != nil {
			s.sendError("mark_all_read failed")
		}
	case "authenticate":
		claims, err := s.hub.tokens.VerifyAccess(cmd.Token)
		if err != nil || claims.UserID != s.user.UserID {
			s.sendError("re-authentication failed")
			return
		}
		s.extendCredential(claims.ExpiresAt.Time)
	default:
		s.sendError("unknown command")
	}
}

// extendCredential moves the session's credential horizon forward. A token
// expiring earlier than the current horizon changes nothing.
func (s *session) extendCredential(expiry time.Time) {
	s.credMu.Lock()
	if expiry.After(s.credExpiry) {
		s.credExpiry = expiry
		s.reauthAsked = false
	}
	s.credMu.Unlock()
}

func (s *session) credentialExpiry() time.Time {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	return s.credExpiry
}

// Outcomes of the expiry timer firing.
const (
	authKeep = iota
	authAsk
	authClose
)

// authTick advances the credential state machine: a live credential keeps
// the session and reports when to check again; the first lapse asks the
// client to re-authenticate; a lapse that already asked closes the session.
func (s *session) authTick(now time.Time) (int, time.Duration) {
	s.credMu.Lock()
	defer s.credMu.Unlock()
	if now.Before(s.credExpiry) {
		return authKeep, s.credExpiry.Sub(now)
	}
	if !s.reauthAsked {
		s.reauthAsked = true
		return authAsk, 0
	}
	return authClose, 0
}

func (s *session) subscribe(topic string) error {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if _, exists := s.subs[topic]; exists {
		return nil
	}
	id, err := s.hub.broker.Subscribe(topic, s.deliver)
	if err != nil {
		return err
	}
	s.subs[topic] = id
	return nil
}

func (s *session) unsubscribe(topic string) {
	s.subsMu.Lock()
	id, exists := s.subs[topic]
	delete(s.subs, topic)
	s.subsMu.Unlock()
	if exists {
		s.hub.broker.Unsubscribe(id)
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(s.hub.heartbeat)
	defer ticker.Stop()

	authTimer := time.NewTimer(time.Until(s.credentialExpiry()))
	defer authTimer.Stop()

	for {
		select {
		case now := <-authTimer.C:
			switch state, wait := s.authTick(now); state {
			case authKeep:
				authTimer.Reset(wait)
			case authAsk:
				s.sendError("credentials expired, re-authenticate")
				authTimer.Reset(s.hub.reauthGrace)
			default:
				s.close(websocket.ClosePolicyViolation, "credentials expired")
				return
			}
		case <-s.notify:
			for {
				frame, ok := s.box.pop()
				if !ok {
					break
				}
				s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeTimeout))
				if err := s.conn.WriteJSON(frame); err != nil {
					s.close(websocket.CloseAbnormalClosure, "write failed")
					return
				}
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close(websocket.CloseAbnormalClosure, "ping failed")
				return
			}
		case <-s.done:
			return
		}
	}
}

// sendError reports a protocol error on the session pseudo-topic. Errors
// ride the mailbox like any critical envelope.
func (s *session) sendError(message string) {
	body, _ := json.Marshal(map[string]string{"error": message})
	s.box.push(serverFrame{
		Topic: sessionTopic,
		Envelope: broker.Envelope{
			Action: broker.ActionError,
			Body:   body,
		},
	})
	s.wake()
}

// close initiates shutdown exactly once. The close frame is best effort.
func (s *session) close(code int, reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		msg := websocket.FormatCloseMessage(code, reason)
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.conn.Close()
	})
}

func (s *session) teardown() {
	s.close(websocket.CloseNormalClosure, "")

	s.subsMu.Lock()
	ids := make([]uint64, 0, len(s.subs))
	for _, id := range s.subs {
		ids = append(ids, id)
	}
	s.subs = make(map[string]uint64)
	s.subsMu.Unlock()
	for _, id := range ids {
		s.hub.broker.Unsubscribe(id)
	}

	s.hub.forget(s)
}

// mailbox is the bounded queue between broker workers and the session
// writer. Overflow sheds the oldest non-critical frame first; push refuses
// only when every queued frame is critical, which the caller treats as a
// fatal backlog.
type mailbox struct {
	mu    sync.Mutex
	queue []serverFrame
	max   int
}

func newMailbox(max int) *mailbox {
	if max < 1 {
		max = 1
	}
	return &mailbox{max: max}
}

func (b *mailbox) push(frame serverFrame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.queue) >= b.max {
		shed := -1
		for i := range b.queue {
			if !b.queue[i].Envelope.Critical() {
				shed = i
				break
			}
		}
		if shed < 0 {
			if !frame.Envelope.Critical() {
				// Queue is all-critical; a non-critical arrival is the one
				// to drop.
				return true
			}
			return false
		}
		b.queue = append(b.queue[:shed], b.queue[shed+1:]...)
	}

	b.queue = append(b.queue, frame)
	return true
}

func (b *mailbox) pop() (serverFrame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return serverFrame{}, false
	}
	frame := b.queue[0]
	b.queue = b.queue[1:]
	return frame, true
}

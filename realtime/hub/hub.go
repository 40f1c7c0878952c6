// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package hub owns the live websocket sessions: authentication at upgrade,
// per-session subscription sets, heartbeats, and the bounded mailbox
// between broker deliveries and each session's writer.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/tessera-social/tessera/internal/auth/tokens"
	"github.com/tessera-social/tessera/internal/platform/config"
	"github.com/tessera-social/tessera/internal/types"
	notificationServices "github.com/tessera-social/tessera/notifications/services"
	"github.com/tessera-social/tessera/realtime/broker"
)

const (
	defaultCommandTimeout = 10 * time.Second

	// defaultReauthGrace is how long an expired session may keep its
	// transport while the client fetches fresh credentials.
	defaultReauthGrace = 30 * time.Second
)

// credExpiryCtxName carries the verified token's expiry from the upgrade
// gate to the connection handler.
const credExpiryCtxName = "session_credential_expiry"

// Hub tracks every live session. Sessions are independent; the hub only
// needs the set for shutdown.
type Hub struct {
	broker        broker.Broker
	tokens        *tokens.Service
	notifications notificationServices.NotificationService

	heartbeat      time.Duration
	writeTimeout   time.Duration
	commandTimeout time.Duration
	reauthGrace    time.Duration
	queueSize      int

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// New creates the session hub.
func New(b broker.Broker, tokenService *tokens.Service, notifications notificationServices.NotificationService, cfg config.RealtimeConfig) *Hub {
	return &Hub{
		broker:         b,
		tokens:         tokenService,
		notifications:  notifications,
		heartbeat:      cfg.HeartbeatInterval,
		writeTimeout:   cfg.WriteTimeout,
		commandTimeout: defaultCommandTimeout,
		reauthGrace:    defaultReauthGrace,
		queueSize:      cfg.SubscriptionQueueSize,
		sessions:       make(map[string]*session),
	}
}

// UpgradeGate verifies the access token carried in the token query
// parameter before allowing the websocket upgrade. The verified identity
// travels to the connection handler through locals.
func (h *Hub) UpgradeGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		claims, err := h.tokens.VerifyAccess(c.Query("token"))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid credentials",
			})
		}
		c.Locals(types.UserCtxName, types.UserContext{
			UserID: claims.UserID,
			Name:   claims.Name,
		})
		c.Locals(credExpiryCtxName, claims.ExpiresAt.Time)
		return c.Next()
	}
}

// Handler is the websocket endpoint. It blocks for the lifetime of the
// connection.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		user, ok := conn.Locals(types.UserCtxName).(types.UserContext)
		if !ok {
			conn.Close()
			return
		}
		expiry, _ := conn.Locals(credExpiryCtxName).(time.Time)

		s := newSession(h, conn, user, expiry)
		if !h.remember(s) {
			conn.Close()
			return
		}
		s.run()
	})
}

func (h *Hub) remember(s *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.sessions[s.id] = s
	return true
}

func (h *Hub) forget(s *session) {
	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
}

// SessionCount reports how many sessions are live.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close disconnects every session. New upgrades are refused afterwards.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	sessions := make([]*session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.Unlock()

	for _, s := range sessions {
		s.close(websocket.CloseGoingAway, "server shutting down")
	}
	return ctx.Err()
}

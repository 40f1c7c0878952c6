// Copyright (c) 2025 Tessera Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package postgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tessera-social/tessera/internal/events"
	"github.com/tessera-social/tessera/internal/pkg/log"
)

const defaultHookTimeout = 5 * time.Second

// CommitHook receives one committed domain event. Hooks run after the
// transaction that emitted the event has committed, in commit order. A hook
// error is logged and never affects the already-committed transaction.
type CommitHook func(ctx context.Context, evt events.Event) error

// TxManager executes functions inside database transactions and dispatches
// the domain events they emit once the transaction commits.
//
// Repositories participate by reading the injected *sqlx.Tx from the context
// (the shared "tx" key). Services emit events through events.Emit; the events
// accumulate in a per-transaction buffer and are discarded on rollback.
//
// Commit and batch enqueue happen under a single lock, so batches reach the
// hooks in the exact order the transactions committed. A dedicated goroutine
// drains the queue and runs hooks sequentially; the queue is unbounded so a
// hook that opens its own transaction can never deadlock the dispatcher.
type TxManager struct {
	client      *Client
	hookTimeout time.Duration

	mu          sync.Mutex
	cond        *sync.Cond
	pending     [][]events.Event
	dispatching bool
	closed      bool
	done        chan struct{}

	hooksMu sync.RWMutex
	hooks   []CommitHook

	commitMu sync.Mutex
}

// NewTxManager creates a transaction manager on top of the given client and
// starts its dispatch goroutine.
func NewTxManager(client *Client, hookTimeout time.Duration) *TxManager {
	if hookTimeout <= 0 {
		hookTimeout = defaultHookTimeout
	}
	m := &TxManager{
		client:      client,
		hookTimeout: hookTimeout,
		done:        make(chan struct{}),
	}
	m.cond = sync.NewCond(&m.mu)
	go m.dispatch()
	return m
}

// RegisterCommitHook adds a hook to the dispatch chain. Hooks run in
// registration order for every committed event.
func (m *TxManager) RegisterCommitHook(hook CommitHook) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// WithTransaction executes a function within a database transaction.
//
// The transaction and a fresh event buffer are injected into the context
// passed to fn. If fn returns an error the transaction rolls back and the
// buffered events are dropped. On commit the events are queued for the
// commit hooks. A reentrant call joins the transaction already bound to the
// context instead of opening a nested one.
func (m *TxManager) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value("tx") != nil {
		return fn(ctx)
	}

	tx, err := m.client.DB().BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	buf := &events.Buffer{}

	// Inject transaction into context using shared key
	txCtx := context.WithValue(ctx, "tx", tx)
	txCtx = events.WithBuffer(txCtx, buf)

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	// Execute the function
	if err := fn(txCtx); err != nil {
		// Rollback on error
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	// Commit and enqueue under one lock so the hook queue observes the
	// database commit order.
	m.commitMu.Lock()
	if err := tx.Commit(); err != nil {
		m.commitMu.Unlock()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	if batch := buf.Drain(); len(batch) > 0 {
		m.enqueue(batch)
	}
	m.commitMu.Unlock()

	return nil
}

func (m *TxManager) enqueue(batch []events.Event) {
	m.mu.Lock()
	if !m.closed {
		m.pending = append(m.pending, batch)
	}
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *TxManager) dispatch() {
	defer close(m.done)
	for {
		m.mu.Lock()
		for len(m.pending) == 0 && !m.closed {
			m.cond.Wait()
		}
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return
		}
		batch := m.pending[0]
		m.pending = m.pending[1:]
		m.dispatching = true
		m.mu.Unlock()

		for _, evt := range batch {
			m.runHooks(evt)
		}

		m.mu.Lock()
		m.dispatching = false
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

func (m *TxManager) runHooks(evt events.Event) {
	m.hooksMu.RLock()
	hooks := m.hooks
	m.hooksMu.RUnlock()

	for _, hook := range hooks {
		m.runHook(hook, evt)
	}
}

func (m *TxManager) runHook(hook CommitHook, evt events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), m.hookTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			log.Error("commit hook panicked on %s: %v", evt.Action, p)
		}
	}()
	if err := hook(ctx, evt); err != nil {
		log.Error("commit hook failed on %s: %v", evt.Action, err)
	}
}

// Flush blocks until every queued event batch has been handed to the hooks.
func (m *TxManager) Flush() {
	m.mu.Lock()
	for len(m.pending) > 0 || m.dispatching {
		m.cond.Wait()
	}
	m.mu.Unlock()
}

// Close drains the pending queue and stops the dispatch goroutine. Further
// commits still succeed but their events are no longer dispatched.
func (m *TxManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	<-m.done
}

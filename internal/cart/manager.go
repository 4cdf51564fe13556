package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/kiplystart/kiplystart-backend/pkg/logger"
)

// Manager loads, mutates and saves carts by session ID.
//
// Mutations of one session run one at a time; different sessions proceed in
// parallel. Store failures never reach the caller: a failed load hydrates an
// empty cart and a failed save is logged and dropped.
type Manager struct {
	store Store
	tiers Tiers

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(store Store, tiers Tiers) *Manager {
	return &Manager{
		store: store,
		tiers: tiers,
		locks: make(map[string]*sessionLock),
	}
}

// View returns the session's current cart without saving anything.
func (m *Manager) View(ctx context.Context, sessionID string) *Cart {
	unlock := m.lock(sessionID)
	defer unlock()
	return m.load(ctx, sessionID)
}

// Update applies fn to the session's cart and saves the result.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(c *Cart)) *Cart {
	unlock := m.lock(sessionID)
	defer unlock()

	c := m.load(ctx, sessionID)
	fn(c)
	m.save(ctx, sessionID, c)
	return c
}

// Consume hands the session's lines to fn and drops the saved cart once fn
// succeeds. The session stays locked throughout, so no add can slip in
// between the read and the delete. A failing fn leaves the cart untouched.
func (m *Manager) Consume(ctx context.Context, sessionID string, fn func(lines []Line) error) error {
	unlock := m.lock(sessionID)
	defer unlock()

	if err := fn(m.load(ctx, sessionID).Lines()); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, sessionID); err != nil {
		logger.Warn("Failed to delete cart session", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
	return nil
}

func (m *Manager) load(ctx context.Context, sessionID string) *Cart {
	data, err := m.store.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Failed to load cart, starting empty", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
		return New(m.tiers)
	}
	return Hydrate(data, m.tiers)
}

func (m *Manager) save(ctx context.Context, sessionID string, c *Cart) {
	data, err := c.MarshalJSON()
	if err != nil {
		logger.Error("Failed to encode cart", err, map[string]interface{}{
			"session_id": sessionID,
		})
		return
	}
	if err := m.store.Save(ctx, sessionID, data); err != nil {
		logger.Error("Failed to persist cart", err, map[string]interface{}{
			"session_id": sessionID,
			"lines":      len(c.lines),
		})
	}
}

func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}

package pending

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/whoisbot/core/logger"
	"github.com/m3rciful/whoisbot/internal/model"
)

// Memory is a process-local Registry.
type Memory struct {
	mu    sync.Mutex
	edits map[int64]Edit
	ttl   time.Duration
	now   func() time.Time
}

var _ Registry = (*Memory)(nil)

// NewMemory constructs an in-memory registry. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		edits: make(map[int64]Edit),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Open records a new edit for adminID, replacing the previous one.
func (m *Memory) Open(ctx context.Context, adminID, chatID int64, setting model.Setting) (Edit, error) {
	if !setting.Valid() {
		return Edit{}, fmt.Errorf("pending: unknown setting %q", setting)
	}
	m.mu.Lock()
	prev, replaced := m.edits[adminID]
	e := newEdit(adminID, chatID, setting, m.now())
	m.edits[adminID] = e
	m.mu.Unlock()

	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.Int64("admin_id", adminID),
		slog.Int64("target_chat_id", chatID),
		slog.String("setting", string(setting)),
	}
	if replaced {
		attrs = append(attrs, slog.String("replaced", string(prev.Setting)))
	}
	logger.Debug(ctx, "pending", "edit.open", attrs...)
	return e, nil
}

// Get returns the open edit of adminID. Expired edits are dropped on access.
func (m *Memory) Get(_ context.Context, adminID int64) (Edit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.edits[adminID]
	if !ok {
		return Edit{}, ErrNoPendingEdit
	}
	if m.expired(e) {
		delete(m.edits, adminID)
		return Edit{}, ErrNoPendingEdit
	}
	return e, nil
}

// Complete removes e only if it is still current.
func (m *Memory) Complete(ctx context.Context, e Edit) (bool, error) {
	m.mu.Lock()
	cur, ok := m.edits[e.AdminID]
	done := ok && cur.ID == e.ID
	if done {
		delete(m.edits, e.AdminID)
	}
	m.mu.Unlock()

	if !done {
		logger.Debug(ctx, "pending", "edit.complete",
			slog.String("status", "skip"),
			slog.Int64("admin_id", e.AdminID),
			slog.String("reason", "superseded"),
		)
	}
	return done, nil
}

// Cancel drops the open edit of adminID.
func (m *Memory) Cancel(_ context.Context, adminID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.edits[adminID]
	if !ok {
		return false, nil
	}
	delete(m.edits, adminID)
	return !m.expired(e), nil
}

// Len returns the number of stored edits, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edits)
}

// Sweep removes expired edits and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.edits {
		if m.expired(e) {
			delete(m.edits, id)
			n++
		}
	}
	return n
}

func (m *Memory) expired(e Edit) bool {
	return m.now().Sub(e.OpenedAt) > m.ttl
}

// Package pending tracks settings an administrator was prompted to change and
// whose new value is expected as their next plain-text message.
//
// An administrator has at most one open edit. Opening another one replaces
// it; navigating elsewhere in the menu cancels it.
package pending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/whoisbot/internal/model"
)

// DefaultTTL bounds how long an unanswered prompt stays open.
const DefaultTTL = 15 * time.Minute

// ErrNoPendingEdit is returned when the administrator has no open edit.
var ErrNoPendingEdit = errors.New("pending: no pending edit")

// Edit is an open prompt for a new setting value.
type Edit struct {
	// ID distinguishes successive edits of the same administrator so a stale
	// resolution can never complete a newer prompt.
	ID       string        `json:"id"`
	AdminID  int64         `json:"admin_id"`
	ChatID   int64         `json:"chat_id"`
	Setting  model.Setting `json:"setting"`
	OpenedAt time.Time     `json:"opened_at"`
}

// Expects returns the type of value the edit accepts.
func (e Edit) Expects() model.ValueKind {
	return e.Setting.Kind()
}

// Registry stores open edits keyed by administrator.
type Registry interface {
	// Open records a new edit, silently replacing any previous one.
	Open(ctx context.Context, adminID, chatID int64, setting model.Setting) (Edit, error)
	// Get returns the open edit or ErrNoPendingEdit.
	Get(ctx context.Context, adminID int64) (Edit, error)
	// Complete removes e if it is still the administrator's open edit and
	// reports whether it did.
	Complete(ctx context.Context, e Edit) (bool, error)
	// Cancel drops whatever edit is open and reports whether there was one.
	Cancel(ctx context.Context, adminID int64) (bool, error)
}

func newEdit(adminID, chatID int64, setting model.Setting, now time.Time) Edit {
	return Edit{
		ID:       uuid.NewString(),
		AdminID:  adminID,
		ChatID:   chatID,
		Setting:  setting,
		OpenedAt: now.UTC(),
	}
}

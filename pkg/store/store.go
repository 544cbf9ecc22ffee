// Package store persists exported trust receipts. Storage is a
// collaborator concern: the core receipt/chain/validate packages never
// depend on it, and a store round-trip must reproduce receipts
// field-for-field in chain order.
package store

import (
	"context"
	"errors"

	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

// ErrNotFound is returned when a session has no stored receipts.
var ErrNotFound = errors.New("store: not found")

// ReceiptStore persists and retrieves receipt chains.
type ReceiptStore interface {
	// Append stores one receipt at the tail of its session's chain.
	Append(ctx context.Context, r *receipt.TrustReceipt) error

	// LoadChain returns a session's receipts in chain order.
	LoadChain(ctx context.Context, sessionID string) ([]*receipt.TrustReceipt, error)

	// LastForSession returns the most recent receipt for a session, or
	// ErrNotFound when the session has none.
	LastForSession(ctx context.Context, sessionID string) (*receipt.TrustReceipt, error)

	// Sessions lists the distinct session IDs with stored receipts.
	Sessions(ctx context.Context) ([]string, error)
}

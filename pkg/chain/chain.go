// Package chain maintains one session's append-only, hash-linked
// sequence of trust receipts. Entries can be appended and exported; no
// API exists to remove, reorder, or mutate existing receipts.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

// ErrChainSealed is returned by AddInteraction after Seal.
var ErrChainSealed = errors.New("chain: sealed, no further appends")

// Chain owns the ordered receipt sequence for a single session. The
// read-tail-then-append step runs under a mutex so two concurrent callers
// cannot compute the same previous_hash and fork the chain.
type Chain struct {
	mu        sync.Mutex
	sessionID string
	generator *receipt.Generator
	receipts  []*receipt.TrustReceipt
	sealed    bool
}

// New creates an empty chain for sessionID backed by generator. A nil
// generator yields a read-only chain suitable for Import and analysis.
func New(sessionID string, generator *receipt.Generator) *Chain {
	return &Chain{
		sessionID: sessionID,
		generator: generator,
		receipts:  make([]*receipt.TrustReceipt, 0),
	}
}

// SessionID returns the session this chain records.
func (c *Chain) SessionID() string { return c.sessionID }

// AddInteraction generates a receipt for one interaction and appends it.
// The new receipt's previous_hash is the current tail's self_hash, or the
// sentinel when the chain is empty.
func (c *Chain) AddInteraction(mode receipt.Mode, inputs, constraints, outcome map[string]interface{}, metrics receipt.CIQMetrics, metadata map[string]interface{}) (*receipt.TrustReceipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return nil, ErrChainSealed
	}
	if c.generator == nil {
		return nil, errors.New("chain: no generator configured")
	}

	previousHash := receipt.SentinelHash
	if n := len(c.receipts); n > 0 {
		previousHash = c.receipts[n-1].SelfHash
	}

	r, err := c.generator.Generate(c.sessionID, mode, inputs, constraints, outcome, metrics, previousHash, metadata)
	if err != nil {
		return nil, err
	}

	c.receipts = append(c.receipts, r)
	return r, nil
}

// Seal closes the chain. Appends after Seal fail with ErrChainSealed;
// reads and exports remain available. Sealing is not reversible.
func (c *Chain) Seal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sealed = true
}

// Sealed reports whether the chain has been sealed.
func (c *Chain) Sealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealed
}

// Len returns the number of receipts in the chain.
func (c *Chain) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.receipts)
}

// Head returns the tail receipt's self_hash, or the sentinel for an
// empty chain.
func (c *Chain) Head() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.receipts); n > 0 {
		return c.receipts[n-1].SelfHash
	}
	return receipt.SentinelHash
}

// Export returns the receipts in chain order. The returned records are
// deep copies; mutating them cannot corrupt the chain.
func (c *Chain) Export() []*receipt.TrustReceipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*receipt.TrustReceipt, len(c.receipts))
	for i, r := range c.receipts {
		out[i] = r.Clone()
	}
	return out
}

// ExportJSON serializes the chain as an ordered JSON array. Array order
// is authoritative; no companion index is written.
func (c *Chain) ExportJSON() ([]byte, error) {
	records := c.Export()
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("chain: export failed: %w", err)
	}
	return b, nil
}

// Import replaces the chain's contents with the given records, cloning
// each. Import(Export()) reconstructs the chain field-for-field.
func (c *Chain) Import(records []*receipt.TrustReceipt) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return ErrChainSealed
	}

	imported := make([]*receipt.TrustReceipt, len(records))
	for i, r := range records {
		if r == nil {
			return fmt.Errorf("chain: nil record at index %d", i)
		}
		imported[i] = r.Clone()
	}
	c.receipts = imported
	return nil
}

// ImportJSON restores a chain from an ExportJSON payload.
func (c *Chain) ImportJSON(data []byte) error {
	var records []*receipt.TrustReceipt
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("chain: import failed: %w", err)
	}
	return c.Import(records)
}

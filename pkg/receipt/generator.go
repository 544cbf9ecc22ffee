package receipt

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/s8ken/SYMBI-Symphony/pkg/canonical"
	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
)

// Generator assembles and signs new trust receipts. It exclusively owns
// the signing key; consumers that only need to check receipts should hold
// a crypto.Verifier instead.
type Generator struct {
	signer crypto.Signer
	clock  func() time.Time
}

// NewGenerator creates a Generator around the given signer.
func NewGenerator(signer crypto.Signer) *Generator {
	return &Generator{signer: signer, clock: time.Now}
}

// WithClock overrides the timestamp source for testing.
func (g *Generator) WithClock(clock func() time.Time) *Generator {
	g.clock = clock
	return g
}

// Verifier returns the public half of the generator's keypair.
func (g *Generator) Verifier() crypto.Verifier {
	return g.signer.Verifier()
}

// Generate builds a fully hashed and signed receipt from interaction
// data. previousHash must be the predecessor's self_hash, or
// SentinelHash for a chain's first receipt; the generator never invents
// chain topology. Flags start empty: they belong to validation.
func (g *Generator) Generate(sessionID string, mode Mode, inputs, constraints, outcome map[string]interface{}, metrics CIQMetrics, previousHash string, metadata map[string]interface{}) (*TrustReceipt, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("receipt: unknown mode %q", mode)
	}
	if previousHash == "" {
		return nil, fmt.Errorf("receipt: previous_hash is required (use SentinelHash for a chain head)")
	}
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	if constraints == nil {
		constraints = map[string]interface{}{}
	}
	if outcome == nil {
		outcome = map[string]interface{}{}
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	r := &TrustReceipt{
		Version:      Version,
		SessionID:    sessionID,
		Mode:         mode,
		Inputs:       inputs,
		Constraints:  constraints,
		Outcome:      outcome,
		Flags:        []Flag{},
		CIQMetrics:   metrics,
		PreviousHash: previousHash,
		Timestamp:    g.clock().UTC().Format(time.RFC3339Nano),
		Metadata:     metadata,
	}

	selfHash, err := canonical.Hash(r.HashablePayload())
	if err != nil {
		return nil, err
	}
	r.SelfHash = selfHash

	sig, err := g.signer.Sign(selfHash)
	if err != nil {
		return nil, fmt.Errorf("receipt: signing failed: %w", err)
	}
	r.Signature = base64.StdEncoding.EncodeToString(sig)

	return r, nil
}

// Package receipt defines the trust receipt record and its generator.
//
// A TrustReceipt is one immutable record of a single AI interaction:
// hash-linked to its predecessor through previous_hash, content-addressed
// through self_hash, and individually signed over that hash. Receipts are
// created once at interaction-completion time and never mutated.
package receipt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the receipt format version stamped on new receipts.
const Version = "1.0"

// SentinelHash is the reserved previous_hash value for the first receipt
// in a chain: 64 hex zero characters, meaning "no predecessor".
const SentinelHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Mode identifies the operating mode an interaction ran under. The set
// is closed; anything else fails Valid().
type Mode string

const (
	ModeConstitutional Mode = "constitutional"
	ModeDirective      Mode = "directive"
	ModeHybrid         Mode = "hybrid"
)

// Valid reports whether m is a member of the closed mode set.
func (m Mode) Valid() bool {
	switch m {
	case ModeConstitutional, ModeDirective, ModeHybrid:
		return true
	}
	return false
}

// ParseMode converts a wire string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(s))
	if !m.Valid() {
		return "", fmt.Errorf("receipt: unknown mode %q", s)
	}
	return m, nil
}

// Flag marks a validation-time finding on a receipt. Flags are never set
// at generation.
type Flag string

const (
	FlagValidated        Flag = "validated"
	FlagAnomalyDetected  Flag = "anomaly_detected"
	FlagChainBroken      Flag = "chain_broken"
	FlagSignatureInvalid Flag = "signature_invalid"
	FlagSchemaViolation  Flag = "schema_violation"
)

// Valid reports whether f is a member of the closed flag set.
func (f Flag) Valid() bool {
	switch f {
	case FlagValidated, FlagAnomalyDetected, FlagChainBroken,
		FlagSignatureInvalid, FlagSchemaViolation:
		return true
	}
	return false
}

// CIQMetrics carries the six quality dimensions embedded per receipt.
// Every value is constrained to the closed interval [0,1]; the domain is
// enforced by validation, not construction.
type CIQMetrics struct {
	Clarity    float64 `json:"clarity"`
	Integrity  float64 `json:"integrity"`
	Quality    float64 `json:"quality"`
	Breadth    float64 `json:"breadth"`
	Safety     float64 `json:"safety"`
	Completion float64 `json:"completion"`
}

// Map returns the metrics keyed by wire name, in a form suitable for
// canonical hashing.
func (c CIQMetrics) Map() map[string]interface{} {
	return map[string]interface{}{
		"clarity":    c.Clarity,
		"integrity":  c.Integrity,
		"quality":    c.Quality,
		"breadth":    c.Breadth,
		"safety":     c.Safety,
		"completion": c.Completion,
	}
}

// TrustReceipt is one signed, hash-linked interaction record.
//
// Inputs, Constraints, Outcome, and Metadata are opaque structured
// payloads; the core hashes them but never interprets their content.
type TrustReceipt struct {
	Version      string                 `json:"version"`
	SessionID    string                 `json:"session_id"`
	Mode         Mode                   `json:"mode"`
	Inputs       map[string]interface{} `json:"inputs"`
	Constraints  map[string]interface{} `json:"constraints"`
	Outcome      map[string]interface{} `json:"outcome"`
	Flags        []Flag                 `json:"flags"`
	CIQMetrics   CIQMetrics             `json:"ciq_metrics"`
	PreviousHash string                 `json:"previous_hash"`
	SelfHash     string                 `json:"self_hash"`
	Signature    string                 `json:"signature"`
	Timestamp    string                 `json:"timestamp"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// HashablePayload returns the fields covered by self_hash, keyed by wire
// name. Signature and self_hash are excluded by definition; flags are
// excluded because they are populated by validation after signing.
func (r *TrustReceipt) HashablePayload() map[string]interface{} {
	return map[string]interface{}{
		"version":       r.Version,
		"session_id":    r.SessionID,
		"mode":          string(r.Mode),
		"inputs":        r.Inputs,
		"constraints":   r.Constraints,
		"outcome":       r.Outcome,
		"ciq_metrics":   r.CIQMetrics.Map(),
		"previous_hash": r.PreviousHash,
		"timestamp":     r.Timestamp,
		"metadata":      r.Metadata,
	}
}

// ToJSON serializes the receipt for export.
func (r *TrustReceipt) ToJSON() ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("receipt: marshal failed: %w", err)
	}
	return b, nil
}

// FromJSON deserializes an exported receipt.
func FromJSON(data []byte) (*TrustReceipt, error) {
	var r TrustReceipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("receipt: unmarshal failed: %w", err)
	}
	return &r, nil
}

// Clone returns a deep copy. Validators and analyzers operate on copies
// so the original record stays untouched.
func (r *TrustReceipt) Clone() *TrustReceipt {
	cp := *r
	cp.Inputs = cloneMap(r.Inputs)
	cp.Constraints = cloneMap(r.Constraints)
	cp.Outcome = cloneMap(r.Outcome)
	cp.Metadata = cloneMap(r.Metadata)
	if r.Flags != nil {
		cp.Flags = make([]Flag, len(r.Flags))
		copy(cp.Flags, r.Flags)
	}
	return &cp
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, elem := range t {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
}

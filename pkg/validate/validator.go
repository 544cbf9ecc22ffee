// Package validate independently re-derives and checks every integrity
// property of a trust receipt or receipt chain. All checks run
// unconditionally and contribute to one accumulating issue list: an audit
// consumer needs the complete picture of what is wrong and where, not
// just the first failure.
package validate

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/s8ken/SYMBI-Symphony/pkg/canonical"
	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

//go:embed trust_receipt.schema.json
var receiptSchemaJSON []byte

const receiptSchemaURL = "https://symbi.schemas.local/trust_receipt.schema.json"

// Validator checks receipts against the issuer's public key. It holds
// only verifier material; private keys never reach validation code.
type Validator struct {
	verifier crypto.Verifier
	schema   *jsonschema.Schema
}

// New creates a Validator trusting the given verifier key (or keyring).
func New(verifier crypto.Verifier) (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(receiptSchemaURL, bytes.NewReader(receiptSchemaJSON)); err != nil {
		return nil, fmt.Errorf("validate: schema load failed: %w", err)
	}
	schema, err := c.Compile(receiptSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("validate: schema compile failed: %w", err)
	}
	return &Validator{verifier: verifier, schema: schema}, nil
}

// ValidateReceipt runs every single-receipt check: signature validity,
// hash validity, schema completeness, and CIQ metric domain. Each check
// contributes independently to the issue list; none short-circuits.
func (v *Validator) ValidateReceipt(r *receipt.TrustReceipt) Report {
	issues := v.receiptIssues(r, -1)
	return Report{Valid: len(issues) == 0, Issues: issues}
}

// ValidateChain validates every receipt individually (issues carry the
// element index) and additionally checks link continuity and session
// continuity across the sequence. An empty chain is valid.
func (v *Validator) ValidateChain(receipts []*receipt.TrustReceipt) Report {
	var issues []Issue

	for i, r := range receipts {
		issues = append(issues, v.receiptIssues(r, i)...)
	}

	for i := 1; i < len(receipts); i++ {
		if receipts[i] == nil || receipts[i-1] == nil {
			continue
		}
		if receipts[i].PreviousHash != receipts[i-1].SelfHash {
			issues = append(issues, Issue{
				Code:    CodeChainBroken,
				Index:   i,
				Field:   "previous_hash",
				Message: fmt.Sprintf("does not match self_hash of receipt %d", i-1),
			})
		}
		if receipts[i].SessionID != receipts[i-1].SessionID {
			issues = append(issues, Issue{
				Code:    CodeSessionMismatch,
				Index:   i,
				Field:   "session_id",
				Message: fmt.Sprintf("%q differs from %q at receipt %d", receipts[i].SessionID, receipts[i-1].SessionID, i-1),
			})
		}
	}

	return Report{Valid: len(issues) == 0, Issues: issues}
}

func (v *Validator) receiptIssues(r *receipt.TrustReceipt, index int) []Issue {
	if r == nil {
		return []Issue{{Code: CodeSchemaViolation, Index: index, Message: "receipt is nil"}}
	}

	var issues []Issue
	issues = append(issues, v.checkSignature(r, index)...)
	issues = append(issues, v.checkHash(r, index)...)
	issues = append(issues, v.checkSchema(r, index)...)
	issues = append(issues, checkCIQDomain(r.CIQMetrics, index)...)
	return issues
}

func (v *Validator) checkSignature(r *receipt.TrustReceipt, index int) []Issue {
	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return []Issue{{
			Code:    CodeSignatureInvalid,
			Index:   index,
			Field:   "signature",
			Message: "not valid base64",
		}}
	}
	if !v.verifier.Verify(r.SelfHash, sig) {
		return []Issue{{
			Code:    CodeSignatureInvalid,
			Index:   index,
			Field:   "signature",
			Message: "does not verify against self_hash with the issuer public key",
		}}
	}
	return nil
}

func (v *Validator) checkHash(r *receipt.TrustReceipt, index int) []Issue {
	computed, err := canonical.Hash(r.HashablePayload())
	if err != nil {
		return []Issue{{
			Code:    CodeHashMismatch,
			Index:   index,
			Field:   "self_hash",
			Message: fmt.Sprintf("payload cannot be canonically encoded: %v", err),
		}}
	}
	if computed != r.SelfHash {
		return []Issue{{
			Code:    CodeHashMismatch,
			Index:   index,
			Field:   "self_hash",
			Message: "recomputed hash does not match stored value",
		}}
	}
	return nil
}

func (v *Validator) checkSchema(r *receipt.TrustReceipt, index int) []Issue {
	var issues []Issue

	generic, err := toGeneric(r)
	if err != nil {
		issues = append(issues, Issue{
			Code:    CodeSchemaViolation,
			Index:   index,
			Message: fmt.Sprintf("record not representable as JSON: %v", err),
		})
		return issues
	}

	if err := v.schema.Validate(generic); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			for _, leaf := range leafCauses(ve) {
				issues = append(issues, Issue{
					Code:    CodeSchemaViolation,
					Index:   index,
					Field:   instanceField(leaf.InstanceLocation),
					Message: leaf.Message,
				})
			}
		} else {
			issues = append(issues, Issue{Code: CodeSchemaViolation, Index: index, Message: err.Error()})
		}
	}

	if _, err := parseTimestamp(r.Timestamp); err != nil {
		issues = append(issues, Issue{
			Code:    CodeSchemaViolation,
			Index:   index,
			Field:   "timestamp",
			Message: "not a valid ISO-8601 UTC instant",
		})
	}

	if r.Version != "" {
		if _, err := semver.NewVersion(r.Version); err != nil {
			issues = append(issues, Issue{
				Code:    CodeSchemaViolation,
				Index:   index,
				Field:   "version",
				Message: fmt.Sprintf("%q is not a parseable version", r.Version),
			})
		}
	}

	return issues
}

func checkCIQDomain(m receipt.CIQMetrics, index int) []Issue {
	metrics := []struct {
		name  string
		value float64
	}{
		{"clarity", m.Clarity},
		{"integrity", m.Integrity},
		{"quality", m.Quality},
		{"breadth", m.Breadth},
		{"safety", m.Safety},
		{"completion", m.Completion},
	}

	var issues []Issue
	for _, metric := range metrics {
		if math.IsNaN(metric.value) || metric.value < 0 || metric.value > 1 {
			issues = append(issues, Issue{
				Code:    CodeCiqDomainViolation,
				Index:   index,
				Field:   "ciq_metrics." + metric.name,
				Message: fmt.Sprintf("value %v outside [0,1]", metric.value),
			})
		}
	}
	return issues
}

// toGeneric round-trips a receipt through JSON into the generic form the
// schema validator consumes.
func toGeneric(r *receipt.TrustReceipt) (interface{}, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// leafCauses flattens a nested validation error into its leaf findings.
func leafCauses(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range ve.Causes {
		leaves = append(leaves, leafCauses(cause)...)
	}
	return leaves
}

// instanceField converts a JSON pointer like "/ciq_metrics/clarity" into
// dotted field notation.
func instanceField(ptr string) string {
	return strings.ReplaceAll(strings.TrimPrefix(ptr, "/"), "/", ".")
}

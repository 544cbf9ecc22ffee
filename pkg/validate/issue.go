package validate

import (
	"fmt"

	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

// Code classifies a validation finding. The set is closed; every issue a
// validator can report carries exactly one of these.
type Code string

const (
	CodeSignatureInvalid   Code = "SIGNATURE_INVALID"
	CodeHashMismatch       Code = "HASH_MISMATCH"
	CodeSchemaViolation    Code = "SCHEMA_VIOLATION"
	CodeCiqDomainViolation Code = "CIQ_DOMAIN_VIOLATION"
	CodeChainBroken        Code = "CHAIN_BROKEN"
	CodeSessionMismatch    Code = "SESSION_MISMATCH"
)

// Issue is one localized validation finding. Index is the receipt's
// position within a chain, or -1 for standalone receipt validation.
// Field names the offending field where one can be identified.
type Issue struct {
	Code    Code   `json:"code"`
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	loc := ""
	if i.Index >= 0 {
		loc = fmt.Sprintf("receipt %d: ", i.Index)
	}
	if i.Field != "" {
		return fmt.Sprintf("%s%s: %s: %s", loc, i.Code, i.Field, i.Message)
	}
	return fmt.Sprintf("%s%s: %s", loc, i.Code, i.Message)
}

// Report is the structured outcome of a validation run: a boolean verdict
// plus the exhaustive list of everything found wrong. A single corrupted
// receipt never suppresses detection of unrelated problems elsewhere.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Strings renders every issue for human consumption.
func (r Report) Strings() []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.String()
	}
	return out
}

// Flags maps the report's findings onto receipt flags. Callers apply
// these to copies of their receipts; validation never mutates a record
// in place. A clean report yields the validated flag alone.
func (r Report) Flags() []receipt.Flag {
	if r.Valid {
		return []receipt.Flag{receipt.FlagValidated}
	}
	seen := make(map[receipt.Flag]bool)
	var flags []receipt.Flag
	add := func(f receipt.Flag) {
		if !seen[f] {
			seen[f] = true
			flags = append(flags, f)
		}
	}
	for _, issue := range r.Issues {
		switch issue.Code {
		case CodeSignatureInvalid:
			add(receipt.FlagSignatureInvalid)
		case CodeChainBroken, CodeSessionMismatch:
			add(receipt.FlagChainBroken)
		case CodeSchemaViolation:
			add(receipt.FlagSchemaViolation)
		case CodeHashMismatch, CodeCiqDomainViolation:
			add(receipt.FlagAnomalyDetected)
		}
	}
	return flags
}

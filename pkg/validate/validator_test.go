package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s8ken/SYMBI-Symphony/pkg/chain"
	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

type fixture struct {
	gen       *receipt.Generator
	validator *Validator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	signer, verifier, err := crypto.GenerateKeyPair(2048)
	require.NoError(t, err)
	v, err := New(verifier)
	require.NoError(t, err)
	return &fixture{gen: receipt.NewGenerator(signer), validator: v}
}

func (f *fixture) receipt(t *testing.T, sessionID string, metrics receipt.CIQMetrics, previousHash string) *receipt.TrustReceipt {
	t.Helper()
	r, err := f.gen.Generate(sessionID, receipt.ModeConstitutional,
		map[string]interface{}{"prompt": "summarize the contract"},
		map[string]interface{}{"max_tokens": float64(500)},
		map[string]interface{}{"response": "the contract covers three parties"},
		metrics, previousHash, nil)
	require.NoError(t, err)
	return r
}

func goodMetrics() receipt.CIQMetrics {
	return receipt.CIQMetrics{
		Clarity:    0.80,
		Integrity:  0.85,
		Quality:    0.82,
		Breadth:    0.75,
		Safety:     0.90,
		Completion: 0.88,
	}
}

func codesAt(report Report, index int) []Code {
	var codes []Code
	for _, issue := range report.Issues {
		if issue.Index == index {
			codes = append(codes, issue.Code)
		}
	}
	return codes
}

func countCode(report Report, code Code) int {
	n := 0
	for _, issue := range report.Issues {
		if issue.Code == code {
			n++
		}
	}
	return n
}

func TestValidReceipt(t *testing.T) {
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)

	report := f.validator.ValidateReceipt(r)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestTamperedOutcome(t *testing.T) {
	// Editing content invalidates the stored hash but not the signature,
	// which still covers the (stale) self_hash. The two checks stay
	// independent.
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	r.Outcome["response"] = "the contract covers four parties"

	report := f.validator.ValidateReceipt(r)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodeHashMismatch, report.Issues[0].Code)
	assert.Equal(t, "self_hash", report.Issues[0].Field)
	assert.Equal(t, -1, report.Issues[0].Index)
}

func TestTamperedSelfHash(t *testing.T) {
	// Rewriting self_hash breaks both the hash check and the signature
	// check; both must be reported.
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	r.SelfHash = "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	report := f.validator.ValidateReceipt(r)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, countCode(report, CodeHashMismatch))
	assert.Equal(t, 1, countCode(report, CodeSignatureInvalid))
}

func TestSignatureNotBase64(t *testing.T) {
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	r.Signature = "%%% not base64 %%%"

	report := f.validator.ValidateReceipt(r)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, countCode(report, CodeSignatureInvalid))
	// hash over the payload is untouched
	assert.Zero(t, countCode(report, CodeHashMismatch))
}

func TestForeignKeySignature(t *testing.T) {
	f := newFixture(t)
	other := newFixture(t)
	// signed by a key the validator does not trust
	foreign, err := other.gen.Generate("s1", receipt.ModeConstitutional,
		map[string]interface{}{}, map[string]interface{}{}, map[string]interface{}{},
		goodMetrics(), receipt.SentinelHash, nil)
	require.NoError(t, err)

	report := f.validator.ValidateReceipt(foreign)
	assert.False(t, report.Valid)
	assert.Equal(t, 1, countCode(report, CodeSignatureInvalid))
	assert.Zero(t, countCode(report, CodeHashMismatch))
}

func TestCIQOutOfRange(t *testing.T) {
	// The generator records whatever the caller measured; range
	// enforcement belongs to validation.
	f := newFixture(t)
	m := goodMetrics()
	m.Clarity = 1.5
	m.Safety = -0.2
	r := f.receipt(t, "s1", m, receipt.SentinelHash)

	report := f.validator.ValidateReceipt(r)
	assert.False(t, report.Valid)
	require.Equal(t, 2, countCode(report, CodeCiqDomainViolation))
	// hash and signature were computed over the out-of-range values, so
	// they still check out; the domain finding stands alone
	assert.Zero(t, countCode(report, CodeHashMismatch))
	assert.Zero(t, countCode(report, CodeSignatureInvalid))

	fields := []string{report.Issues[0].Field, report.Issues[1].Field}
	assert.Contains(t, fields, "ciq_metrics.clarity")
	assert.Contains(t, fields, "ciq_metrics.safety")
}

func TestCIQViolationDoesNotSuppressOtherChecks(t *testing.T) {
	f := newFixture(t)
	m := goodMetrics()
	m.Quality = 2.0
	r := f.receipt(t, "s1", m, receipt.SentinelHash)
	r.Inputs["prompt"] = "tampered"

	report := f.validator.ValidateReceipt(r)
	assert.Equal(t, 1, countCode(report, CodeCiqDomainViolation))
	assert.Equal(t, 1, countCode(report, CodeHashMismatch))
}

func TestSchemaViolations(t *testing.T) {
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	r.Mode = receipt.Mode("freestyle")

	report := f.validator.ValidateReceipt(r)
	assert.False(t, report.Valid)
	assert.GreaterOrEqual(t, countCode(report, CodeSchemaViolation), 1)
	// mode is part of the hashed payload
	assert.Equal(t, 1, countCode(report, CodeHashMismatch))
}

func TestBadTimestamp(t *testing.T) {
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	r.Timestamp = "yesterday at noon"

	report := f.validator.ValidateReceipt(r)
	found := false
	for _, issue := range report.Issues {
		if issue.Code == CodeSchemaViolation && issue.Field == "timestamp" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestBadVersion(t *testing.T) {
	f := newFixture(t)
	r := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	r.Version = "banana"

	report := f.validator.ValidateReceipt(r)
	found := false
	for _, issue := range report.Issues {
		if issue.Code == CodeSchemaViolation && issue.Field == "version" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestNilReceipt(t *testing.T) {
	f := newFixture(t)
	report := f.validator.ValidateReceipt(nil)
	assert.False(t, report.Valid)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, CodeSchemaViolation, report.Issues[0].Code)
}

func TestEmptyChainIsValid(t *testing.T) {
	f := newFixture(t)
	report := f.validator.ValidateChain(nil)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestValidChain(t *testing.T) {
	f := newFixture(t)
	a := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	b := f.receipt(t, "s1", goodMetrics(), a.SelfHash)
	c := f.receipt(t, "s1", goodMetrics(), b.SelfHash)

	report := f.validator.ValidateChain([]*receipt.TrustReceipt{a, b, c})
	assert.True(t, report.Valid)
	assert.Empty(t, report.Issues)
}

func TestBrokenLink(t *testing.T) {
	f := newFixture(t)
	a := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	b := f.receipt(t, "s1", goodMetrics(), a.SelfHash)
	b.PreviousHash = "dddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddddd"

	report := f.validator.ValidateChain([]*receipt.TrustReceipt{a, b})
	assert.False(t, report.Valid)

	// the first receipt is untouched and reports nothing
	assert.Empty(t, codesAt(report, 0))

	// exactly one broken-link finding, localized to the second receipt
	require.Equal(t, 1, countCode(report, CodeChainBroken))
	for _, issue := range report.Issues {
		if issue.Code == CodeChainBroken {
			assert.Equal(t, 1, issue.Index)
			assert.Equal(t, "previous_hash", issue.Field)
		}
	}

	// previous_hash is hashed, so the edit also surfaces as a hash
	// mismatch on the same receipt
	assert.Equal(t, 1, countCode(report, CodeHashMismatch))
	assert.Contains(t, codesAt(report, 1), CodeHashMismatch)
}

func TestSessionMismatch(t *testing.T) {
	f := newFixture(t)
	a := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	b := f.receipt(t, "s2", goodMetrics(), a.SelfHash)

	report := f.validator.ValidateChain([]*receipt.TrustReceipt{a, b})
	assert.False(t, report.Valid)
	require.Equal(t, 1, countCode(report, CodeSessionMismatch))
	assert.Contains(t, codesAt(report, 1), CodeSessionMismatch)
}

func TestChainIssuesCarryIndexes(t *testing.T) {
	f := newFixture(t)
	a := f.receipt(t, "s1", goodMetrics(), receipt.SentinelHash)
	b := f.receipt(t, "s1", goodMetrics(), a.SelfHash)
	c := f.receipt(t, "s1", goodMetrics(), b.SelfHash)
	a.Outcome["response"] = "edited"
	c.Signature = "AAAA"

	report := f.validator.ValidateChain([]*receipt.TrustReceipt{a, b, c})
	assert.Contains(t, codesAt(report, 0), CodeHashMismatch)
	assert.Empty(t, codesAt(report, 1))
	assert.Contains(t, codesAt(report, 2), CodeSignatureInvalid)
}

func TestValidateChainFromChainExport(t *testing.T) {
	f := newFixture(t)
	ch := chain.New("s1", f.gen)
	for i := 0; i < 3; i++ {
		_, err := ch.AddInteraction(receipt.ModeHybrid,
			map[string]interface{}{"prompt": "p"},
			map[string]interface{}{},
			map[string]interface{}{"response": "r"},
			goodMetrics(), nil)
		require.NoError(t, err)
	}

	report := f.validator.ValidateChain(ch.Export())
	assert.True(t, report.Valid)
}

func TestReportFlags(t *testing.T) {
	clean := Report{Valid: true}
	assert.Equal(t, []receipt.Flag{receipt.FlagValidated}, clean.Flags())

	dirty := Report{Valid: false, Issues: []Issue{
		{Code: CodeSignatureInvalid, Index: 0},
		{Code: CodeChainBroken, Index: 1},
		{Code: CodeSessionMismatch, Index: 1},
		{Code: CodeHashMismatch, Index: 2},
		{Code: CodeCiqDomainViolation, Index: 2},
		{Code: CodeSchemaViolation, Index: 2},
	}}
	flags := dirty.Flags()
	assert.ElementsMatch(t, []receipt.Flag{
		receipt.FlagSignatureInvalid,
		receipt.FlagChainBroken,
		receipt.FlagAnomalyDetected,
		receipt.FlagSchemaViolation,
	}, flags)
}

func TestIssueString(t *testing.T) {
	i := Issue{Code: CodeChainBroken, Index: 1, Field: "previous_hash", Message: "does not match"}
	assert.Equal(t, "receipt 1: CHAIN_BROKEN: previous_hash: does not match", i.String())

	standalone := Issue{Code: CodeHashMismatch, Index: -1, Message: "mismatch"}
	assert.Equal(t, "HASH_MISMATCH: mismatch", standalone.String())
}

package chain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s8ken/SYMBI-Symphony/pkg/crypto"
	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

func testChain(t *testing.T, sessionID string) *Chain {
	t.Helper()
	signer, _, err := crypto.GenerateKeyPair(2048)
	require.NoError(t, err)
	return New(sessionID, receipt.NewGenerator(signer))
}

func metrics(clarity float64) receipt.CIQMetrics {
	return receipt.CIQMetrics{
		Clarity:    clarity,
		Integrity:  0.85,
		Quality:    0.82,
		Breadth:    0.75,
		Safety:     0.90,
		Completion: 0.88,
	}
}

func add(t *testing.T, c *Chain, clarity float64) *receipt.TrustReceipt {
	t.Helper()
	r, err := c.AddInteraction(receipt.ModeConstitutional,
		map[string]interface{}{"prompt": "q"},
		nil,
		map[string]interface{}{"response": "a"},
		metrics(clarity), nil)
	require.NoError(t, err)
	return r
}

func TestEmptyChainHead(t *testing.T) {
	c := testChain(t, "s1")
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, receipt.SentinelHash, c.Head())
}

func TestAppendLinks(t *testing.T) {
	c := testChain(t, "s1")

	r1 := add(t, c, 0.8)
	assert.Equal(t, receipt.SentinelHash, r1.PreviousHash)

	r2 := add(t, c, 0.9)
	assert.Equal(t, r1.SelfHash, r2.PreviousHash)
	assert.Equal(t, r2.SelfHash, c.Head())
	assert.Equal(t, 2, c.Len())
}

func TestSeal(t *testing.T) {
	c := testChain(t, "s1")
	add(t, c, 0.8)

	assert.False(t, c.Sealed())
	c.Seal()
	assert.True(t, c.Sealed())

	_, err := c.AddInteraction(receipt.ModeConstitutional, nil, nil, nil, metrics(0.8), nil)
	require.ErrorIs(t, err, ErrChainSealed)

	// reads survive sealing
	assert.Equal(t, 1, c.Len())
	assert.Len(t, c.Export(), 1)
}

func TestReadOnlyChainRejectsAppend(t *testing.T) {
	c := New("s1", nil)
	_, err := c.AddInteraction(receipt.ModeConstitutional, nil, nil, nil, metrics(0.8), nil)
	require.Error(t, err)
}

func TestExportIsDeepCopy(t *testing.T) {
	c := testChain(t, "s1")
	add(t, c, 0.8)

	out := c.Export()
	out[0].Inputs["prompt"] = "tampered"
	out[0].SelfHash = "bogus"

	fresh := c.Export()
	assert.Equal(t, "q", fresh[0].Inputs["prompt"])
	assert.Len(t, fresh[0].SelfHash, 64)
}

func TestExportImportRoundtrip(t *testing.T) {
	c := testChain(t, "s1")
	add(t, c, 0.8)
	add(t, c, 0.9)

	data, err := c.ExportJSON()
	require.NoError(t, err)

	restored := New("s1", nil)
	require.NoError(t, restored.ImportJSON(data))
	assert.Equal(t, c.Export(), restored.Export())
	assert.Equal(t, c.Head(), restored.Head())
}

func TestImportRejectsNilRecord(t *testing.T) {
	c := New("s1", nil)
	err := c.Import([]*receipt.TrustReceipt{nil})
	require.Error(t, err)
}

func TestImportAfterSeal(t *testing.T) {
	c := New("s1", nil)
	c.Seal()
	err := c.Import(nil)
	require.ErrorIs(t, err, ErrChainSealed)
}

func TestConcurrentAppends(t *testing.T) {
	c := testChain(t, "s1")

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			add(t, c, 0.8)
		}()
	}
	wg.Wait()

	records := c.Export()
	require.Len(t, records, n)

	// every append observed its predecessor under the lock, so the
	// linkage never forks
	prev := receipt.SentinelHash
	for i, r := range records {
		assert.Equalf(t, prev, r.PreviousHash, "link broken at index %d", i)
		prev = r.SelfHash
	}
}

func TestSummary(t *testing.T) {
	c := testChain(t, "s1")
	add(t, c, 0.6)
	r, err := c.AddInteraction(receipt.ModeDirective, nil, nil, nil, metrics(0.8), nil)
	require.NoError(t, err)
	_ = r

	s := c.Summary()
	assert.Equal(t, "s1", s.SessionID)
	assert.Equal(t, 2, s.Length)
	assert.InDelta(t, 0.7, s.AvgCIQ["clarity"], 1e-9)
	assert.InDelta(t, 0.85, s.AvgCIQ["integrity"], 1e-9)
	assert.ElementsMatch(t, []string{"constitutional", "directive"}, s.ModesUsed)
	assert.NotEmpty(t, s.FirstTimestamp)
	assert.NotEmpty(t, s.LastTimestamp)
}

func TestSummaryEmpty(t *testing.T) {
	c := New("s1", nil)
	s := c.Summary()
	assert.Equal(t, 0, s.Length)
	assert.Empty(t, s.ModesUsed)
}

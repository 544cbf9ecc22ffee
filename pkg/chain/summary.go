package chain

import "github.com/s8ken/SYMBI-Symphony/pkg/receipt"

// Summary is a session-level roll-up of a chain's receipts.
type Summary struct {
	SessionID      string             `json:"session_id"`
	Length         int                `json:"length"`
	AvgCIQ         map[string]float64 `json:"avg_ciq,omitempty"`
	ModesUsed      []string           `json:"modes_used"`
	FirstTimestamp string             `json:"first_timestamp,omitempty"`
	LastTimestamp  string             `json:"last_timestamp,omitempty"`
}

// Summary computes the roll-up for the current chain contents.
func (c *Chain) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		SessionID: c.sessionID,
		Length:    len(c.receipts),
		ModesUsed: []string{},
	}
	if len(c.receipts) == 0 {
		return s
	}

	var clarity, integrity, quality float64
	seen := make(map[receipt.Mode]bool)
	for _, r := range c.receipts {
		clarity += r.CIQMetrics.Clarity
		integrity += r.CIQMetrics.Integrity
		quality += r.CIQMetrics.Quality
		if !seen[r.Mode] {
			seen[r.Mode] = true
			s.ModesUsed = append(s.ModesUsed, string(r.Mode))
		}
	}

	n := float64(len(c.receipts))
	s.AvgCIQ = map[string]float64{
		"clarity":   clarity / n,
		"integrity": integrity / n,
		"quality":   quality / n,
	}
	s.FirstTimestamp = c.receipts[0].Timestamp
	s.LastTimestamp = c.receipts[len(c.receipts)-1].Timestamp
	return s
}

// Package analyze derives patterns and insights from exported receipt
// chains. It is a read-only downstream consumer: it assumes nothing about
// receipt internals beyond the exported record shape and never verifies
// or mutates records.
package analyze

import (
	"fmt"
	"sort"

	"github.com/s8ken/SYMBI-Symphony/pkg/chain"
	"github.com/s8ken/SYMBI-Symphony/pkg/receipt"
)

// Trend describes the direction of a metric series.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// slopes flatter than this count as stable
const trendSlopeThreshold = 0.05

// CIQTrends summarizes metric movement across a session.
type CIQTrends struct {
	Clarity            Trend   `json:"clarity_trend"`
	Integrity          Trend   `json:"integrity_trend"`
	Quality            Trend   `json:"quality_trend"`
	OverallImprovement float64 `json:"overall_improvement"`
}

// ModeStats aggregates usage and quality per operating mode.
type ModeStats struct {
	Counts      map[string]int                `json:"mode_counts"`
	Averages    map[string]map[string]float64 `json:"mode_averages"`
	MostUsed    string                        `json:"most_used_mode"`
	BestPerMode string                        `json:"best_performing_mode"`
}

// SessionAnalysis is the full analysis of one session chain.
type SessionAnalysis struct {
	Summary  chain.Summary `json:"session_summary"`
	Trends   *CIQTrends    `json:"ciq_trends,omitempty"`
	Modes    ModeStats     `json:"mode_analysis"`
	Insights []string      `json:"quality_insights"`
}

// SessionComparison compares multiple session chains.
type SessionComparison struct {
	SessionCount      int                `json:"session_count"`
	TotalInteractions int                `json:"total_interactions"`
	AvgCIQ            map[string]float64 `json:"avg_ciq_across_sessions"`
	ModeDistribution  map[string]float64 `json:"mode_distribution"`
	BestSessionID     string             `json:"best_performing_session"`
	BestSessionScore  float64            `json:"best_session_score"`
	Recommendations   []string           `json:"recommendations"`
}

// Analyzer computes session analyses and cross-session comparisons.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// AnalyzeSession analyzes one chain.
func (a *Analyzer) AnalyzeSession(c *chain.Chain) (*SessionAnalysis, error) {
	receipts := c.Export()
	if len(receipts) == 0 {
		return nil, fmt.Errorf("analyze: no receipts in session %q", c.SessionID())
	}

	analysis := &SessionAnalysis{
		Summary:  c.Summary(),
		Modes:    analyzeModes(receipts),
		Insights: qualityInsights(receipts),
	}
	if len(receipts) >= 2 {
		trends := analyzeTrends(receipts)
		analysis.Trends = &trends
	}
	return analysis, nil
}

// CompareSessions aggregates across multiple chains.
func (a *Analyzer) CompareSessions(chains []*chain.Chain) (*SessionComparison, error) {
	if len(chains) == 0 {
		return nil, fmt.Errorf("analyze: no chains to compare")
	}

	var all []*receipt.TrustReceipt
	for _, c := range chains {
		all = append(all, c.Export()...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("analyze: no receipts in any chain")
	}

	bestID, bestScore := bestSession(chains)
	return &SessionComparison{
		SessionCount:      len(chains),
		TotalInteractions: len(all),
		AvgCIQ:            averageCIQ(all),
		ModeDistribution:  modeDistribution(all),
		BestSessionID:     bestID,
		BestSessionScore:  bestScore,
		Recommendations:   recommendations(all),
	}, nil
}

// compositeCIQ is the clarity/integrity/quality mean used for scoring.
func compositeCIQ(m receipt.CIQMetrics) float64 {
	return (m.Clarity + m.Integrity + m.Quality) / 3
}

func analyzeTrends(receipts []*receipt.TrustReceipt) CIQTrends {
	clarity := make([]float64, len(receipts))
	integrity := make([]float64, len(receipts))
	quality := make([]float64, len(receipts))
	for i, r := range receipts {
		clarity[i] = r.CIQMetrics.Clarity
		integrity[i] = r.CIQMetrics.Integrity
		quality[i] = r.CIQMetrics.Quality
	}

	first := receipts[0].CIQMetrics
	last := receipts[len(receipts)-1].CIQMetrics
	return CIQTrends{
		Clarity:            seriesTrend(clarity),
		Integrity:          seriesTrend(integrity),
		Quality:            seriesTrend(quality),
		OverallImprovement: compositeCIQ(last) - compositeCIQ(first),
	}
}

// seriesTrend fits a least-squares line and buckets the slope.
func seriesTrend(values []float64) Trend {
	n := float64(len(values))
	if n < 2 {
		return TrendStable
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumX2 - sumX*sumX)

	switch {
	case slope > trendSlopeThreshold:
		return TrendImproving
	case slope < -trendSlopeThreshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func analyzeModes(receipts []*receipt.TrustReceipt) ModeStats {
	counts := make(map[string]int)
	sums := make(map[string]*receipt.CIQMetrics)
	for _, r := range receipts {
		mode := string(r.Mode)
		counts[mode]++
		if sums[mode] == nil {
			sums[mode] = &receipt.CIQMetrics{}
		}
		sums[mode].Clarity += r.CIQMetrics.Clarity
		sums[mode].Integrity += r.CIQMetrics.Integrity
		sums[mode].Quality += r.CIQMetrics.Quality
	}

	averages := make(map[string]map[string]float64, len(sums))
	mostUsed, bestMode := "", ""
	bestScore := -1.0
	for _, mode := range sortedKeys(counts) {
		n := float64(counts[mode])
		avg := map[string]float64{
			"clarity":   sums[mode].Clarity / n,
			"integrity": sums[mode].Integrity / n,
			"quality":   sums[mode].Quality / n,
		}
		averages[mode] = avg

		if mostUsed == "" || counts[mode] > counts[mostUsed] {
			mostUsed = mode
		}
		score := (avg["clarity"] + avg["integrity"] + avg["quality"]) / 3
		if score > bestScore {
			bestScore = score
			bestMode = mode
		}
	}

	return ModeStats{
		Counts:      counts,
		Averages:    averages,
		MostUsed:    mostUsed,
		BestPerMode: bestMode,
	}
}

func averageCIQ(receipts []*receipt.TrustReceipt) map[string]float64 {
	var clarity, integrity, quality float64
	for _, r := range receipts {
		clarity += r.CIQMetrics.Clarity
		integrity += r.CIQMetrics.Integrity
		quality += r.CIQMetrics.Quality
	}
	n := float64(len(receipts))
	return map[string]float64{
		"clarity":   clarity / n,
		"integrity": integrity / n,
		"quality":   quality / n,
	}
}

func modeDistribution(receipts []*receipt.TrustReceipt) map[string]float64 {
	counts := make(map[string]int)
	for _, r := range receipts {
		counts[string(r.Mode)]++
	}
	total := float64(len(receipts))
	dist := make(map[string]float64, len(counts))
	for mode, count := range counts {
		dist[mode] = float64(count) / total
	}
	return dist
}

func bestSession(chains []*chain.Chain) (string, float64) {
	bestID := ""
	bestScore := -1.0
	for _, c := range chains {
		receipts := c.Export()
		if len(receipts) == 0 {
			continue
		}
		var sum float64
		for _, r := range receipts {
			sum += compositeCIQ(r.CIQMetrics)
		}
		if score := sum / float64(len(receipts)); score > bestScore {
			bestScore = score
			bestID = c.SessionID()
		}
	}
	return bestID, bestScore
}

func qualityInsights(receipts []*receipt.TrustReceipt) []string {
	insights := []string{}
	if len(receipts) == 0 {
		return insights
	}

	avg := averageCIQ(receipts)
	switch {
	case avg["clarity"] > 0.8:
		insights = append(insights, "Excellent communication clarity maintained throughout session")
	case avg["clarity"] < 0.5:
		insights = append(insights, "Communication clarity needs improvement")
	}
	switch {
	case avg["integrity"] > 0.8:
		insights = append(insights, "Strong constitutional adherence demonstrated")
	case avg["integrity"] < 0.5:
		insights = append(insights, "Constitutional integrity requires attention")
	}
	switch {
	case avg["quality"] > 0.8:
		insights = append(insights, "High-quality outcomes consistently achieved")
	case avg["quality"] < 0.5:
		insights = append(insights, "Outcome quality below expectations")
	}

	if len(receipts) > 3 {
		half := len(receipts) / 2
		firstAvg := meanComposite(receipts[:half])
		secondAvg := meanComposite(receipts[half:])
		if secondAvg > firstAvg+0.1 {
			insights = append(insights, "Performance improved significantly over time")
		} else if secondAvg < firstAvg-0.1 {
			insights = append(insights, "Performance declined over time")
		}
	}
	return insights
}

func recommendations(receipts []*receipt.TrustReceipt) []string {
	recs := []string{}

	modeScores := make(map[string][]float64)
	for _, r := range receipts {
		mode := string(r.Mode)
		modeScores[mode] = append(modeScores[mode], compositeCIQ(r.CIQMetrics))
	}
	bestMode := ""
	bestAvg := -1.0
	for _, mode := range sortedScoreKeys(modeScores) {
		var sum float64
		for _, s := range modeScores[mode] {
			sum += s
		}
		if avg := sum / float64(len(modeScores[mode])); avg > bestAvg {
			bestAvg = avg
			bestMode = mode
		}
	}
	if bestMode != "" {
		recs = append(recs, fmt.Sprintf("Consider using %s mode more frequently", bestMode))
	}

	overall := meanComposite(receipts)
	if overall < 0.6 {
		recs = append(recs, "Focus on improving constitutional adherence and clarity")
	} else if overall > 0.8 {
		recs = append(recs, "Maintain current high standards of collaboration")
	}
	return recs
}

func meanComposite(receipts []*receipt.TrustReceipt) float64 {
	if len(receipts) == 0 {
		return 0
	}
	var sum float64
	for _, r := range receipts {
		sum += compositeCIQ(r.CIQMetrics)
	}
	return sum / float64(len(receipts))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedScoreKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

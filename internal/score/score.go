// Package score derives a bounded, rule-based risk/recommendation score
// from the canonical metric set. Rules are independent: none sees another
// rule's output, so ordering only affects the order of findings and risks.
package score

import (
	"fmt"

	"github.com/yourorg/token-insight-ea/internal/model"
)

// tier is one row of a rule's threshold table: the first tier whose Min is
// exceeded wins.
type tier struct {
	min     float64
	points  int
	finding string
}

// Threshold tables. Breakpoints are part of the external contract and must
// not drift between scorer variants.
var (
	liquidityTiers = []tier{
		{1_000_000, 25, "Deep liquidity above $1M supports larger positions"},
		{500_000, 15, "Healthy liquidity above $500K"},
		{100_000, 8, "Moderate liquidity above $100K"},
	}

	volumeRatioTiers = []tier{
		{0.10, 20, "Strong trading activity: volume above 10% of market cap"},
		{0.05, 12, "Solid trading activity: volume above 5% of market cap"},
	}

	marketCapTiers = []tier{
		{100_000_000, 8, "Large cap (>$100M): established but slower upside"},
		{10_000_000, 10, "Mid cap ($10M-$100M): established with room to grow"},
		{1_000_000, 6, "Small cap ($1M-$10M): speculative"},
	}

	txCountTiers = []tier{
		{1000, 10, "Very active: over 1000 transactions in 24h"},
		{100, 6, "Active: over 100 transactions in 24h"},
	}
)

// Fixed breakpoints that are not tier tables.
const (
	lowVolumeFloorUSD     = 10_000
	stablePriceBandPct    = 5
	stableVolumeFloorUSD  = 100_000
	stablePricePoints     = 15
	pumpThresholdPct      = 20
	athProximityRatio     = 0.8
	athDiscountRatio      = 0.1
	lowWinRatePct         = 30
	minTraderSample       = 10
	lowTxCountFloor       = 50
)

// Scorer applies the fixed rule sequence to a canonical metric set.
type Scorer struct{}

// New returns the default rule scorer.
func New() *Scorer {
	return &Scorer{}
}

// Score runs every rule in order, sums the contributions, and classifies
// the clamped total. It never fails: a missing metric simply misses its
// rule's threshold or lands in the rule's risk branch.
func (s *Scorer) Score(m model.CanonicalMetrics) model.ScoreResult {
	r := model.ScoreResult{Findings: []string{}, Risks: []string{}}

	r.Score += s.liquidityRule(m, &r)
	r.Score += s.volumeRule(m, &r)
	r.Score += s.priceActionRule(m, &r)
	s.athProximityRule(m, &r)
	r.Score += s.marketCapRule(m, &r)
	r.Score += s.traderRule(m, &r)
	r.Score += s.txActivityRule(m, &r)

	r.Score = Clamp(r.Score)
	r.Confidence = confidence(m)
	return r
}

// ScoreWithBand is Score plus the recommendation/risk classification.
func (s *Scorer) ScoreWithBand(m model.CanonicalMetrics) (model.ScoreResult, model.Recommendation, model.RiskLevel) {
	r := s.Score(m)
	rec, risk := Band(r.Score)
	return r, rec, risk
}

func (s *Scorer) liquidityRule(m model.CanonicalMetrics, r *model.ScoreResult) int {
	for _, t := range liquidityTiers {
		if m.LiquidityUSD > t.min {
			r.Findings = append(r.Findings, t.finding)
			return t.points
		}
	}
	r.Risks = append(r.Risks, fmt.Sprintf("Thin liquidity ($%.0f): exits may move the price significantly", m.LiquidityUSD))
	return 0
}

func (s *Scorer) volumeRule(m model.CanonicalMetrics, r *model.ScoreResult) int {
	for _, t := range volumeRatioTiers {
		if m.VolumeToMarketCapRatio > t.min {
			r.Findings = append(r.Findings, t.finding)
			return t.points
		}
	}
	if m.Volume24h < lowVolumeFloorUSD {
		r.Risks = append(r.Risks, fmt.Sprintf("Very low 24h volume ($%.0f): little market interest", m.Volume24h))
	}
	return 0
}

func (s *Scorer) priceActionRule(m model.CanonicalMetrics, r *model.ScoreResult) int {
	change := m.PriceChange24hPct
	switch {
	case change > pumpThresholdPct:
		r.Risks = append(r.Risks, fmt.Sprintf("Up %.1f%% in 24h: possible pump, entry risk elevated", change))
	case change < -pumpThresholdPct:
		r.Findings = append(r.Findings, fmt.Sprintf("Down %.1f%% in 24h: potential dip entry if fundamentals hold", change))
	case change < stablePriceBandPct && change > -stablePriceBandPct && m.Volume24h > stableVolumeFloorUSD:
		r.Findings = append(r.Findings, "Stable price on meaningful volume")
		return stablePricePoints
	}
	return 0
}

func (s *Scorer) athProximityRule(m model.CanonicalMetrics, r *model.ScoreResult) {
	if m.PriceToATHRatio <= 0 {
		return
	}
	if m.PriceToATHRatio > athProximityRatio {
		r.Risks = append(r.Risks, fmt.Sprintf("Price at %.0f%% of all-time high: limited headroom", m.PriceToATHRatio*100))
	} else if m.PriceToATHRatio < athDiscountRatio {
		r.Findings = append(r.Findings, fmt.Sprintf("Price at %.0f%% of all-time high: deep discount", m.PriceToATHRatio*100))
	}
}

func (s *Scorer) marketCapRule(m model.CanonicalMetrics, r *model.ScoreResult) int {
	for _, t := range marketCapTiers {
		if m.MarketCap > t.min {
			r.Findings = append(r.Findings, t.finding)
			return t.points
		}
	}
	r.Risks = append(r.Risks, fmt.Sprintf("Micro cap ($%.0f): extreme volatility and rug risk", m.MarketCap))
	return 0
}

func (s *Scorer) traderRule(m model.CanonicalMetrics, r *model.ScoreResult) int {
	if m.Trader == nil {
		return 0
	}
	t := m.Trader

	if t.TotalTraders < minTraderSample {
		r.Risks = append(r.Risks, fmt.Sprintf("Only %d traders sampled: trader statistics are low confidence", t.TotalTraders))
	}

	// The 40-60 band is inclusive at 40; only the top band is strict.
	points := 0
	switch {
	case t.WinRatePct > 60:
		r.Findings = append(r.Findings, fmt.Sprintf("Top traders are winning: %.1f%% win rate", t.WinRatePct))
		points = 20
	case t.WinRatePct >= 40:
		r.Findings = append(r.Findings, fmt.Sprintf("Balanced trader outcomes: %.1f%% win rate", t.WinRatePct))
		points = 12
	}
	if t.WinRatePct < lowWinRatePct {
		r.Risks = append(r.Risks, fmt.Sprintf("Most top traders are losing: %.1f%% win rate", t.WinRatePct))
	}
	return points
}

func (s *Scorer) txActivityRule(m model.CanonicalMetrics, r *model.ScoreResult) int {
	tx := float64(m.TxCount24h)
	for _, t := range txCountTiers {
		if tx > t.min {
			r.Findings = append(r.Findings, t.finding)
			return t.points
		}
	}
	if m.TxCount24h < lowTxCountFloor {
		r.Risks = append(r.Risks, fmt.Sprintf("Only %d transactions in 24h: market may be stagnant", m.TxCount24h))
	}
	return 0
}

// confidence reflects how many metric families reconciliation actually
// filled, independent of how favorable the numbers are.
func confidence(m model.CanonicalMetrics) float64 {
	families := 0
	total := 6
	if m.HasUsablePrice() {
		families++
	}
	if m.LiquidityUSD > 0 {
		families++
	}
	if m.Volume24h > 0 {
		families++
	}
	if m.AllTimeHigh > 0 {
		families++
	}
	if m.CommunityScore > 0 || m.DeveloperScore > 0 {
		families++
	}
	if m.Trader != nil && m.Trader.TotalTraders > 0 {
		families++
	}

	c := float64(families) / float64(total)
	if c < 0.1 {
		c = 0.1
	}
	return c
}

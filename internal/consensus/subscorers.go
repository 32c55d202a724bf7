// Package consensus runs independent tagged sub-analyses over disjoint
// metric subsets and blends their scores into one verdict with explicit
// disagreement detection.
package consensus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/score"
)

// Sub-analysis tags. Weights are keyed by these.
const (
	TagResearch = "research"
	TagMarket   = "market"
	TagContract = "contract"
)

// SubScorer scores one slice of the canonical metrics. Implementations
// must mark the result Failed when their entire input subset is absent,
// so the aggregator can redistribute their weight.
type SubScorer interface {
	Tag() string
	Score(m model.CanonicalMetrics) model.ScoreResult
}

// DefaultSubScorers returns the standard research/market/contract trio.
func DefaultSubScorers() []SubScorer {
	return []SubScorer{
		ResearchScorer{},
		MarketScorer{},
		ContractScorer{},
	}
}

// RunAll executes every sub-scorer concurrently and returns their results
// in scorer order. None depends on another, so there is no ordering
// requirement beyond all settling before aggregation.
func RunAll(ctx context.Context, scorers []SubScorer, m model.CanonicalMetrics) []model.ScoreResult {
	results := make([]model.ScoreResult, len(scorers))
	var wg sync.WaitGroup
	for i, sc := range scorers {
		wg.Add(1)
		go func(i int, sc SubScorer) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				results[i] = model.ScoreResult{Tag: sc.Tag(), Failed: true}
			default:
				results[i] = sc.Score(m)
			}
		}(i, sc)
	}
	wg.Wait()
	return results
}

// ResearchScorer evaluates community traction, developer activity, and
// historical standing.
type ResearchScorer struct{}

func (ResearchScorer) Tag() string { return TagResearch }

func (ResearchScorer) Score(m model.CanonicalMetrics) model.ScoreResult {
	r := model.ScoreResult{Tag: TagResearch, Findings: []string{}, Risks: []string{}}

	hasInput := m.CommunityScore > 0 || m.DeveloperScore > 0 ||
		m.PublicInterestScore > 0 || m.MarketCapRank > 0 || m.AllTimeHigh > 0
	if !hasInput {
		r.Failed = true
		return r
	}

	switch {
	case m.CommunityScore > 60:
		r.Score += 25
		r.Findings = append(r.Findings, "Strong community engagement")
	case m.CommunityScore > 30:
		r.Score += 12
		r.Findings = append(r.Findings, "Moderate community engagement")
	default:
		r.Risks = append(r.Risks, "Little to no community data")
	}

	switch {
	case m.DeveloperScore > 50:
		r.Score += 20
		r.Findings = append(r.Findings, "Active development")
	case m.DeveloperScore > 20:
		r.Score += 10
		r.Findings = append(r.Findings, "Some development activity")
	default:
		r.Risks = append(r.Risks, "No visible developer activity")
	}

	switch {
	case m.MarketCapRank > 0 && m.MarketCapRank <= 100:
		r.Score += 25
		r.Findings = append(r.Findings, fmt.Sprintf("Top-100 asset (rank %d)", m.MarketCapRank))
	case m.MarketCapRank > 0 && m.MarketCapRank <= 500:
		r.Score += 12
		r.Findings = append(r.Findings, fmt.Sprintf("Top-500 asset (rank %d)", m.MarketCapRank))
	}

	if m.PublicInterestScore > 40 {
		r.Score += 10
		r.Findings = append(r.Findings, "High public interest")
	}

	if m.ATHChangePct < -90 {
		r.Risks = append(r.Risks, fmt.Sprintf("Down %.0f%% from all-time high", -m.ATHChangePct))
	}

	r.Score = score.Clamp(r.Score)
	r.Confidence = subConfidence(3, countPresent(
		m.CommunityScore > 0 || m.DeveloperScore > 0,
		m.MarketCapRank > 0,
		m.AllTimeHigh > 0,
	))
	return r
}

// MarketScorer evaluates liquidity, volume, price action, and on-chain
// transaction activity.
type MarketScorer struct{}

func (MarketScorer) Tag() string { return TagMarket }

func (MarketScorer) Score(m model.CanonicalMetrics) model.ScoreResult {
	r := model.ScoreResult{Tag: TagMarket, Findings: []string{}, Risks: []string{}}

	if !m.HasUsablePrice() && m.LiquidityUSD == 0 && m.Volume24h == 0 && m.TxCount24h == 0 {
		r.Failed = true
		return r
	}

	switch {
	case m.LiquidityUSD > 1_000_000:
		r.Score += 30
		r.Findings = append(r.Findings, "Deep DEX liquidity")
	case m.LiquidityUSD > 100_000:
		r.Score += 15
		r.Findings = append(r.Findings, "Adequate DEX liquidity")
	default:
		r.Risks = append(r.Risks, "Thin or unknown liquidity")
	}

	switch {
	case m.VolumeToMarketCapRatio > 0.10:
		r.Score += 25
		r.Findings = append(r.Findings, "Volume above 10% of market cap")
	case m.VolumeToMarketCapRatio > 0.05:
		r.Score += 15
		r.Findings = append(r.Findings, "Volume above 5% of market cap")
	case m.Volume24h < 10_000:
		r.Risks = append(r.Risks, "Negligible 24h volume")
	}

	change := m.PriceChange24hPct
	switch {
	case change > 20:
		r.Risks = append(r.Risks, fmt.Sprintf("Sharp 24h pump (+%.1f%%)", change))
	case change < -20:
		r.Risks = append(r.Risks, fmt.Sprintf("Sharp 24h drawdown (%.1f%%)", change))
	case change < 5 && change > -5:
		r.Score += 20
		r.Findings = append(r.Findings, "Price stability over 24h")
	default:
		r.Score += 10
	}

	switch {
	case m.TxCount24h > 1000:
		r.Score += 15
		r.Findings = append(r.Findings, "High transaction count")
	case m.TxCount24h > 100:
		r.Score += 8
	}

	r.Score = score.Clamp(r.Score)
	r.Confidence = subConfidence(3, countPresent(
		m.HasUsablePrice(),
		m.LiquidityUSD > 0,
		m.TxCount24h > 0,
	))
	return r
}

// ContractScorer evaluates supply structure, dilution overhang, and smart
// money behavior.
type ContractScorer struct{}

func (ContractScorer) Tag() string { return TagContract }

func (ContractScorer) Score(m model.CanonicalMetrics) model.ScoreResult {
	r := model.ScoreResult{Tag: TagContract, Findings: []string{}, Risks: []string{}}

	if m.TotalSupply == 0 && m.FullyDilutedValue == 0 && m.Trader == nil {
		r.Failed = true
		return r
	}

	if m.TotalSupply > 0 && m.CirculatingSupply > 0 {
		circRatio := m.CirculatingSupply / m.TotalSupply
		switch {
		case circRatio >= 0.9:
			r.Score += 25
			r.Findings = append(r.Findings, "Nearly full supply in circulation: low unlock pressure")
		case circRatio >= 0.5:
			r.Score += 12
			r.Findings = append(r.Findings, "Majority of supply in circulation")
		default:
			r.Risks = append(r.Risks, fmt.Sprintf("Only %.0f%% of supply circulating: unlock overhang", circRatio*100))
		}
	}

	if m.MarketCap > 0 && m.FullyDilutedValue > 0 {
		fdvRatio := m.FullyDilutedValue / m.MarketCap
		switch {
		case fdvRatio <= 1.5:
			r.Score += 20
			r.Findings = append(r.Findings, "FDV close to market cap: limited dilution ahead")
		case fdvRatio > 3:
			r.Risks = append(r.Risks, fmt.Sprintf("FDV %.1fx market cap: heavy future dilution", fdvRatio))
		default:
			r.Score += 8
		}
	}

	if m.MaxSupply > 0 {
		r.Score += 10
		r.Findings = append(r.Findings, "Capped max supply")
	}

	if t := m.Trader; t != nil && t.TotalTraders > 0 {
		switch {
		case t.WinRatePct > 60:
			r.Score += 25
			r.Findings = append(r.Findings, fmt.Sprintf("Smart money winning: %.1f%% trader win rate", t.WinRatePct))
		case t.WinRatePct >= 40:
			r.Score += 12
		default:
			r.Risks = append(r.Risks, fmt.Sprintf("Smart money losing: %.1f%% trader win rate", t.WinRatePct))
		}
		if t.TotalTraders < 10 {
			r.Risks = append(r.Risks, "Trader sample too small to trust")
		}
	}

	r.Score = score.Clamp(r.Score)
	r.Confidence = subConfidence(3, countPresent(
		m.TotalSupply > 0,
		m.FullyDilutedValue > 0,
		m.Trader != nil && m.Trader.TotalTraders > 0,
	))
	return r
}

func countPresent(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// subConfidence scales with how much of the scorer's input subset was
// actually present, floored so a partially-fed scorer still counts.
func subConfidence(total, present int) float64 {
	if total == 0 || present == 0 {
		return 0.2
	}
	c := 0.4 + 0.6*float64(present)/float64(total)
	if c > 1 {
		c = 1
	}
	return c
}

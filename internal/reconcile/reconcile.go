// Package reconcile merges the per-provider payloads into one canonical
// metric view. It owns the source-priority fallback, the sanity bounds
// that reject implausible values, and the derived ratios.
package reconcile

import (
	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-insight-ea/internal/model"
)

// pricePriority is the fixed fallback order for the price family. The
// first provider with a usable positive price supplies the entire family;
// the families of the others are discarded to avoid mixing sources.
var pricePriority = []model.ProviderName{
	model.ProviderCoinGecko,
	model.ProviderDexScreener,
	model.ProviderBirdeye,
}

// Options holds the sanity bounds applied after source selection.
type Options struct {
	// MaxMarketCapUSD is the inclusive market-cap ceiling. A value above
	// it resets to 0.
	MaxMarketCapUSD float64

	// MaxVolumeMultiple caps 24h volume at this multiple of market cap.
	// Volume above the cap resets to 0. Only checked when market cap is
	// positive; without a market cap there is nothing to compare against.
	MaxVolumeMultiple float64
}

// DefaultOptions returns the standard sanity bounds.
func DefaultOptions() Options {
	return Options{
		MaxMarketCapUSD:   10e12, // $10T
		MaxVolumeMultiple: 10.0,
	}
}

// Reconcile builds the canonical metric set from the settled payloads.
// It never fails: every unresolvable field degrades to its zero value and
// a fully unusable run is reported through PrimarySource == SourceNone.
func Reconcile(payloads map[model.ProviderName]model.ProviderPayload, opts Options) model.CanonicalMetrics {
	m := model.CanonicalMetrics{PrimarySource: model.SourceNone}

	// Step 1-2: pick the price-family source in strict priority order and
	// copy its whole family verbatim.
	winner := selectPrimary(payloads)
	if winner != nil {
		m.PrimarySource = winner.Provider
		m.CurrentPrice = winner.Market.Price
		m.MarketCap = winner.Market.MarketCap
		m.Volume24h = winner.Market.Volume24h
		m.PriceChange24hPct = winner.Market.PriceChange24hPct
		if winner.Market.HasSupply {
			m.CirculatingSupply = winner.Market.CirculatingSupply
			m.TotalSupply = winner.Market.TotalSupply
			m.MaxSupply = winner.Market.MaxSupply
		}
	}

	// Step 4: DEX-only fields come from the DEX provider regardless of
	// which provider won the price family. No other provider offers them,
	// so this can never double-count.
	if p, ok := usable(payloads, model.ProviderDexScreener); ok && p.Market.HasDexFields {
		m.LiquidityUSD = p.Market.LiquidityUSD
		m.FullyDilutedValue = p.Market.FullyDilutedValue
		m.TxCount24h = p.Market.TxCount24h
	}

	// Step 5: historical and community fields, likewise independent of the
	// price-family winner.
	if p, ok := usable(payloads, model.ProviderCoinGecko); ok {
		if p.Market.HasHistory {
			m.AllTimeHigh = p.Market.AllTimeHigh
			m.AllTimeLow = p.Market.AllTimeLow
			m.ATHChangePct = p.Market.ATHChangePct
		}
		if p.Market.HasCommunity {
			m.CommunityScore = p.Market.CommunityScore
			m.DeveloperScore = p.Market.DeveloperScore
			m.PublicInterestScore = p.Market.PublicInterestScore
			m.MarketCapRank = p.Market.MarketCapRank
		}
	}

	// Step 3: derive missing supply from the winner's market cap, after
	// the FDV fill so total supply can lean on it.
	if winner != nil && !winner.Market.HasSupply && m.MarketCap > 0 && m.CurrentPrice > 0 {
		m.CirculatingSupply = m.MarketCap / m.CurrentPrice
		if m.FullyDilutedValue > m.MarketCap {
			m.TotalSupply = m.FullyDilutedValue / m.CurrentPrice
		} else {
			m.TotalSupply = m.CirculatingSupply
		}
	}

	// Step 6: sanity bounds. Rejection resets the field, it never aborts.
	applySanityBounds(&m, opts)

	// Step 7: derived ratios, total even when denominators are 0.
	if m.MarketCap > 0 {
		m.VolumeToMarketCapRatio = m.Volume24h / m.MarketCap
		m.LiquidityToMarketCapRatio = m.LiquidityUSD / m.MarketCap
	}
	if m.AllTimeHigh > 0 {
		m.PriceToATHRatio = m.CurrentPrice / m.AllTimeHigh
	}

	// Step 8: trader performance, present only when the chain-gated
	// analytics provider delivered records.
	if p, ok := payloads[model.ProviderSolanaTracker]; ok && p.Status == model.StatusOK {
		perf := ComputeTraderPerformance(p.Traders)
		m.Trader = &perf
	}

	return m
}

// selectPrimary walks the fixed priority order and returns the first
// payload with a usable positive price, or nil when none qualifies.
func selectPrimary(payloads map[model.ProviderName]model.ProviderPayload) *model.ProviderPayload {
	for _, name := range pricePriority {
		if p, ok := usable(payloads, name); ok && p.Market.Price > 0 {
			return p
		}
	}
	return nil
}

func usable(payloads map[model.ProviderName]model.ProviderPayload, name model.ProviderName) (*model.ProviderPayload, bool) {
	p, ok := payloads[name]
	if !ok || p.Status != model.StatusOK || p.Market == nil {
		return nil, false
	}
	return &p, true
}

// applySanityBounds rejects implausible values by resetting them to 0. The
// ceiling itself is accepted; one unit above is not.
func applySanityBounds(m *model.CanonicalMetrics, opts Options) {
	if m.MarketCap < 0 || m.MarketCap > opts.MaxMarketCapUSD {
		logrus.WithFields(logrus.Fields{
			"market_cap": m.MarketCap,
			"ceiling":    opts.MaxMarketCapUSD,
			"source":     m.PrimarySource,
		}).Warn("Rejecting implausible market cap")
		m.MarketCap = 0
	}

	if m.Volume24h < 0 {
		m.Volume24h = 0
	}
	if m.MarketCap > 0 && m.Volume24h > opts.MaxVolumeMultiple*m.MarketCap {
		logrus.WithFields(logrus.Fields{
			"volume":     m.Volume24h,
			"market_cap": m.MarketCap,
			"multiple":   opts.MaxVolumeMultiple,
			"source":     m.PrimarySource,
		}).Warn("Rejecting implausible 24h volume")
		m.Volume24h = 0
	}
}

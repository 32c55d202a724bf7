// Package model defines the core data structures for the token-insight-ea.
package model

// ProviderName identifies one of the upstream market-data providers.
type ProviderName string

// Known providers, in no particular order. Reconciliation priority is
// defined in the reconcile package, not here.
const (
	ProviderCoinGecko     ProviderName = "coingecko"
	ProviderDexScreener   ProviderName = "dexscreener"
	ProviderBirdeye       ProviderName = "birdeye"
	ProviderSolanaTracker ProviderName = "solanatracker"

	// SourceNone is the primary-source marker when no provider supplied a
	// usable price. Callers detect "no usable data" through it.
	SourceNone ProviderName = "none"
)

// PayloadStatus describes the outcome of a single provider fetch.
type PayloadStatus string

const (
	StatusOK     PayloadStatus = "ok"
	StatusAbsent PayloadStatus = "absent"
)

// ProviderPayload is the normalized result of one fetch attempt against one
// provider. A failed or unusable fetch is represented as StatusAbsent with
// nil Market, never as an error that escapes the gateway.
type ProviderPayload struct {
	Provider  ProviderName  `json:"provider"`
	Status    PayloadStatus `json:"status"`
	FetchedAt int64         `json:"fetched_at"`

	// Market holds the provider's normalized market snapshot. Only set
	// when Status is StatusOK.
	Market *MarketData `json:"market,omitempty"`

	// Traders holds raw trade/holder records from trader-analytics
	// providers. Empty for pure market-data providers.
	Traders []TraderRecord `json:"traders,omitempty"`

	// Err carries the failure description for absent payloads. Kept for
	// logging and the /status endpoint, never surfaced to the caller.
	Err string `json:"error,omitempty"`
}

// MarketData is the shared intermediate shape every provider response is
// normalized into before reconciliation. Presence flags mark which field
// families the provider actually supplied, so a legitimate zero is
// distinguishable from "not offered by this provider".
type MarketData struct {
	// Price family. A provider either supplies the whole family or none
	// of it; reconciliation copies the family verbatim from one provider.
	Price             float64 `json:"price"`
	MarketCap         float64 `json:"market_cap"`
	Volume24h         float64 `json:"volume_24h"`
	PriceChange24hPct float64 `json:"price_change_24h_pct"`

	// Supply figures, typically only offered by aggregator-style providers.
	CirculatingSupply float64 `json:"circulating_supply"`
	TotalSupply       float64 `json:"total_supply"`
	MaxSupply         float64 `json:"max_supply"`
	HasSupply         bool    `json:"has_supply"`

	// DEX-only fields.
	LiquidityUSD      float64 `json:"liquidity_usd"`
	FullyDilutedValue float64 `json:"fully_diluted_value"`
	TxCount24h        int     `json:"tx_count_24h"`
	HasDexFields      bool    `json:"has_dex_fields"`

	// Historical price context.
	AllTimeHigh  float64 `json:"all_time_high"`
	AllTimeLow   float64 `json:"all_time_low"`
	ATHChangePct float64 `json:"ath_change_pct"`
	HasHistory   bool    `json:"has_history"`

	// Community and developer activity scores.
	CommunityScore      float64 `json:"community_score"`
	DeveloperScore      float64 `json:"developer_score"`
	PublicInterestScore float64 `json:"public_interest_score"`
	MarketCapRank       int     `json:"market_cap_rank"`
	HasCommunity        bool    `json:"has_community"`
}

// TraderRecord is one trade/holder entry from a trader-analytics provider.
type TraderRecord struct {
	Wallet      string  `json:"wallet"`
	RealizedPnL float64 `json:"realized_pnl"`
	Volume      float64 `json:"volume"`
}

// TraderPerformance aggregates win/loss statistics over a set of trader
// records. All fields are non-negative; WinRatePct is clamped to [0,100].
type TraderPerformance struct {
	TotalTraders      int     `json:"total_traders"`
	ProfitableTraders int     `json:"profitable_traders"`
	LosingTraders     int     `json:"losing_traders"`
	AverageProfit     float64 `json:"average_profit"`
	AverageLoss       float64 `json:"average_loss"`
	TopProfitAmount   float64 `json:"top_profit_amount"`
	TopLossAmount     float64 `json:"top_loss_amount"`
	WinRatePct        float64 `json:"win_rate_pct"`
	TotalVolume       float64 `json:"total_volume"`
}

// CanonicalMetrics is the single reconciled view of a token, built once per
// run from the set of provider payloads. Numeric fields default to 0 when
// unknown so downstream arithmetic stays total; Trader is nil when no
// trader-analytics provider applied.
type CanonicalMetrics struct {
	CurrentPrice      float64 `json:"current_price"`
	MarketCap         float64 `json:"market_cap"`
	Volume24h         float64 `json:"volume_24h"`
	PriceChange24hPct float64 `json:"price_change_24h_pct"`

	CirculatingSupply float64 `json:"circulating_supply"`
	TotalSupply       float64 `json:"total_supply"`
	MaxSupply         float64 `json:"max_supply"`

	LiquidityUSD      float64 `json:"liquidity_usd"`
	FullyDilutedValue float64 `json:"fully_diluted_value"`
	TxCount24h        int     `json:"tx_count_24h"`

	AllTimeHigh  float64 `json:"all_time_high"`
	AllTimeLow   float64 `json:"all_time_low"`
	ATHChangePct float64 `json:"ath_change_pct"`

	VolumeToMarketCapRatio    float64 `json:"volume_to_market_cap_ratio"`
	PriceToATHRatio           float64 `json:"price_to_ath_ratio"`
	LiquidityToMarketCapRatio float64 `json:"liquidity_to_market_cap_ratio"`

	CommunityScore      float64 `json:"community_score"`
	DeveloperScore      float64 `json:"developer_score"`
	PublicInterestScore float64 `json:"public_interest_score"`
	MarketCapRank       int     `json:"market_cap_rank"`

	Trader *TraderPerformance `json:"trader_performance,omitempty"`

	// PrimarySource names the provider that supplied the entire price
	// family above. SourceNone when no provider had a usable price.
	PrimarySource ProviderName `json:"primary_source"`
}

// HasUsablePrice reports whether reconciliation found any usable price data.
func (m CanonicalMetrics) HasUsablePrice() bool {
	return m.PrimarySource != SourceNone && m.CurrentPrice > 0
}

// Recommendation is the investment-style verdict for a score band.
type Recommendation string

const (
	RecommendationStrongBuy Recommendation = "STRONG_BUY"
	RecommendationBuy       Recommendation = "BUY"
	RecommendationHoldWatch Recommendation = "HOLD_WATCH"
	RecommendationAvoid     Recommendation = "AVOID"
	RecommendationDanger    Recommendation = "DANGER"
)

// RiskLevel is the risk classification paired with each recommendation band.
type RiskLevel string

const (
	RiskLow        RiskLevel = "LOW"
	RiskMedium     RiskLevel = "MEDIUM"
	RiskMediumHigh RiskLevel = "MEDIUM_HIGH"
	RiskHigh       RiskLevel = "HIGH"
	RiskExtreme    RiskLevel = "EXTREME"
)

// ScoreResult is the output of the primary rule scorer or any tagged
// sub-scorer feeding the consensus aggregator.
type ScoreResult struct {
	// Tag identifies the sub-analysis ("research", "market", "contract");
	// empty for the primary scorer.
	Tag string `json:"tag,omitempty"`

	Score      int      `json:"score"`
	Findings   []string `json:"findings"`
	Risks      []string `json:"risks"`
	Confidence float64  `json:"confidence"`

	// Failed marks a sub-analysis that had no usable input at all. Failed
	// results are excluded from consensus and their weight redistributed.
	Failed bool `json:"failed,omitempty"`
}

// Conflict is one detected disagreement between sub-analyses.
type Conflict struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Between     []string `json:"between,omitempty"`
}

// ConsensusResult blends 2-4 sub-scores into one verdict with explicit
// disagreement accounting.
type ConsensusResult struct {
	ConsensusScore int            `json:"consensus_score"`
	Recommendation Recommendation `json:"recommendation"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Confidence     float64        `json:"confidence"`
	Conflicts      []Conflict     `json:"conflicts"`
	Findings       []string       `json:"findings"`
	Risks          []string       `json:"risks"`

	// InsufficientData marks the canonical neutral-default result produced
	// when every sub-analysis failed. Distinguishes "we could not analyze"
	// from a legitimately middling score.
	InsufficientData bool `json:"insufficient_data,omitempty"`
}

// SourceAttribution records which providers actually contributed data.
type SourceAttribution struct {
	PrimarySource   ProviderName   `json:"primary_source"`
	DataSourcesUsed []ProviderName `json:"data_sources_used"`
}

// AnalysisResult is the final object handed to the presentation layer.
type AnalysisResult struct {
	Token string `json:"token"`
	Chain string `json:"chain"`

	ConsensusScore int            `json:"consensus_score"`
	Recommendation Recommendation `json:"recommendation"`
	RiskLevel      RiskLevel      `json:"risk_level"`
	Confidence     float64        `json:"confidence"`

	Findings  []string   `json:"findings"`
	Risks     []string   `json:"risks"`
	Conflicts []Conflict `json:"conflicts,omitempty"`

	// PrimaryScore is the single-pass rule score, kept alongside the
	// consensus verdict for auditability.
	PrimaryScore int `json:"primary_score"`

	KeyMetrics CanonicalMetrics  `json:"key_metrics"`
	Sources    SourceAttribution `json:"source_attribution"`

	InsufficientData bool  `json:"insufficient_data,omitempty"`
	AnalyzedAt       int64 `json:"analyzed_at"`
	DurationMs       int64 `json:"duration_ms"`
}

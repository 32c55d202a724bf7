package score

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/token-insight-ea/internal/model"
)

func anyContains(entries []string, substr string) bool {
	for _, e := range entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestScore_HealthyToken(t *testing.T) {
	m := model.CanonicalMetrics{
		PrimarySource:          model.ProviderCoinGecko,
		CurrentPrice:           1.25,
		MarketCap:              50_000_000,
		Volume24h:              6_000_000,
		VolumeToMarketCapRatio: 0.12,
		PriceChange24hPct:      2.0,
		LiquidityUSD:           2_000_000,
		TxCount24h:             1500,
	}

	r, rec, risk := New().ScoreWithBand(m)

	// 25 liquidity + 20 volume ratio + 15 stable price + 10 mid cap + 10 tx.
	assert.Equal(t, 80, r.Score)
	assert.Equal(t, model.RecommendationStrongBuy, rec)
	assert.Equal(t, model.RiskLow, risk)
	assert.Len(t, r.Findings, 5)
	assert.Empty(t, r.Risks)
}

func TestScore_EmptyMetrics(t *testing.T) {
	r, rec, risk := New().ScoreWithBand(model.CanonicalMetrics{PrimarySource: model.SourceNone})

	assert.Equal(t, 0, r.Score)
	assert.Equal(t, model.RecommendationDanger, rec)
	assert.Equal(t, model.RiskExtreme, risk)
	assert.NotEmpty(t, r.Risks)
	assert.Equal(t, 0.1, r.Confidence)
}

func TestScore_LiquidityTiers(t *testing.T) {
	tests := []struct {
		liquidity  float64
		wantPoints int
	}{
		{0, 0},
		{100_000, 0},
		{100_001, 8},
		{500_001, 15},
		{1_000_001, 25},
	}

	s := New()
	prev := -1
	for _, tt := range tests {
		r := s.Score(model.CanonicalMetrics{LiquidityUSD: tt.liquidity})
		assert.Equal(t, tt.wantPoints, r.Score, "liquidity %.0f", tt.liquidity)
		assert.GreaterOrEqual(t, r.Score, prev, "liquidity points must not decrease as liquidity grows")
		prev = r.Score
	}
}

func TestScore_VolumeRatioBreakpoints(t *testing.T) {
	tests := []struct {
		name       string
		ratio      float64
		volume     float64
		wantPoints int
		wantRisk   bool
	}{
		{"above ten percent", 0.11, 50_000, 20, false},
		{"above five percent", 0.06, 50_000, 12, false},
		{"exactly five percent misses", 0.05, 50_000, 0, false},
		{"low ratio and dust volume flags risk", 0.01, 5_000, 0, true},
	}

	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := model.CanonicalMetrics{
				VolumeToMarketCapRatio: tt.ratio,
				Volume24h:              tt.volume,
				PriceChange24hPct:      50, // keep the price rule out of the sum
				LiquidityUSD:           150_000,
				MarketCap:              2_000_000,
				TxCount24h:             200,
			}
			r := s.Score(m)
			assert.Equal(t, 8+6+6+tt.wantPoints, r.Score)
			assert.Equal(t, tt.wantRisk, anyContains(r.Risks, "little market interest"))
		})
	}
}

func TestScore_PriceActionRule(t *testing.T) {
	base := model.CanonicalMetrics{Volume24h: 200_000}

	t.Run("pump flags risk without points", func(t *testing.T) {
		m := base
		m.PriceChange24hPct = 35
		r := New().Score(m)
		assert.True(t, anyContains(r.Risks, "possible pump"))
		assert.Equal(t, 0, r.Score)
	})

	t.Run("deep dip is a finding without points", func(t *testing.T) {
		m := base
		m.PriceChange24hPct = -45
		r := New().Score(m)
		assert.True(t, anyContains(r.Findings, "dip entry"))
		assert.Equal(t, 0, r.Score)
	})

	t.Run("stable price on volume scores", func(t *testing.T) {
		m := base
		m.PriceChange24hPct = -3
		r := New().Score(m)
		assert.Equal(t, 15, r.Score)
	})

	t.Run("stable price without volume does not score", func(t *testing.T) {
		r := New().Score(model.CanonicalMetrics{PriceChange24hPct: 1, Volume24h: 50_000})
		assert.Equal(t, 0, r.Score)
	})
}

func TestScore_ATHProximity(t *testing.T) {
	t.Run("near the high flags risk", func(t *testing.T) {
		r := New().Score(model.CanonicalMetrics{PriceToATHRatio: 0.85})
		assert.True(t, anyContains(r.Risks, "limited headroom"))
	})
	t.Run("deep discount is a finding", func(t *testing.T) {
		r := New().Score(model.CanonicalMetrics{PriceToATHRatio: 0.05})
		assert.True(t, anyContains(r.Findings, "deep discount"))
	})
	t.Run("middle ground is silent", func(t *testing.T) {
		r := New().Score(model.CanonicalMetrics{PriceToATHRatio: 0.5})
		assert.Empty(t, r.Findings)
	})
}

func TestScore_TraderRule(t *testing.T) {
	tests := []struct {
		name       string
		perf       model.TraderPerformance
		wantPoints int
		wantRisks  int
	}{
		{"strong win rate", model.TraderPerformance{TotalTraders: 50, WinRatePct: 72}, 20, 0},
		{"just above top band boundary", model.TraderPerformance{TotalTraders: 50, WinRatePct: 61}, 20, 0},
		{"exactly sixty stays in middle band", model.TraderPerformance{TotalTraders: 50, WinRatePct: 60}, 12, 0},
		{"balanced win rate", model.TraderPerformance{TotalTraders: 50, WinRatePct: 55}, 12, 0},
		{"exactly forty earns middle band", model.TraderPerformance{TotalTraders: 50, WinRatePct: 40}, 12, 0},
		{"just below forty earns nothing", model.TraderPerformance{TotalTraders: 50, WinRatePct: 39.9}, 0, 0},
		{"losing cohort", model.TraderPerformance{TotalTraders: 50, WinRatePct: 20}, 0, 1},
		{"thin sample still scores its win rate", model.TraderPerformance{TotalTraders: 4, WinRatePct: 75}, 20, 1},
		{"thin losing sample stacks both risks", model.TraderPerformance{TotalTraders: 4, WinRatePct: 10}, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perf := tt.perf
			r := New().Score(model.CanonicalMetrics{Trader: &perf})
			assert.Equal(t, tt.wantPoints, r.Score)

			traderRisks := 0
			for _, risk := range r.Risks {
				if strings.Contains(risk, "traders sampled") || strings.Contains(risk, "win rate") {
					traderRisks++
				}
			}
			assert.Equal(t, tt.wantRisks, traderRisks)
		})
	}
}

func TestScore_Bounded(t *testing.T) {
	perf := model.TraderPerformance{TotalTraders: 100, WinRatePct: 90}
	m := model.CanonicalMetrics{
		PrimarySource:          model.ProviderCoinGecko,
		CurrentPrice:           1,
		MarketCap:              50_000_000,
		Volume24h:              10_000_000,
		VolumeToMarketCapRatio: 0.2,
		PriceChange24hPct:      1,
		LiquidityUSD:           5_000_000,
		TxCount24h:             5000,
		Trader:                 &perf,
	}

	r := New().Score(m)
	assert.Equal(t, 100, r.Score)
}

func TestBand_PartitionsRange(t *testing.T) {
	tests := []struct {
		score    int
		wantRec  model.Recommendation
		wantRisk model.RiskLevel
	}{
		{100, model.RecommendationStrongBuy, model.RiskLow},
		{80, model.RecommendationStrongBuy, model.RiskLow},
		{79, model.RecommendationBuy, model.RiskMedium},
		{65, model.RecommendationBuy, model.RiskMedium},
		{64, model.RecommendationHoldWatch, model.RiskMediumHigh},
		{45, model.RecommendationHoldWatch, model.RiskMediumHigh},
		{44, model.RecommendationAvoid, model.RiskHigh},
		{25, model.RecommendationAvoid, model.RiskHigh},
		{24, model.RecommendationDanger, model.RiskExtreme},
		{0, model.RecommendationDanger, model.RiskExtreme},
	}

	for _, tt := range tests {
		rec, risk := Band(tt.score)
		assert.Equal(t, tt.wantRec, rec, "score %d", tt.score)
		assert.Equal(t, tt.wantRisk, risk, "score %d", tt.score)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-10))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 57, Clamp(57))
	assert.Equal(t, 100, Clamp(100))
	assert.Equal(t, 100, Clamp(140))
}

package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/token-insight-ea/internal/model"
)

func okMarket(name model.ProviderName, market model.MarketData) model.ProviderPayload {
	return model.ProviderPayload{
		Provider: name,
		Status:   model.StatusOK,
		Market:   &market,
	}
}

func absent(name model.ProviderName) model.ProviderPayload {
	return model.ProviderPayload{Provider: name, Status: model.StatusAbsent}
}

func TestReconcile_PriorityOrder(t *testing.T) {
	coingecko := model.MarketData{Price: 1.0, MarketCap: 100, Volume24h: 10, PriceChange24hPct: 1}
	dexscreener := model.MarketData{Price: 2.0, MarketCap: 200, Volume24h: 20, PriceChange24hPct: 2, HasDexFields: true}
	birdeye := model.MarketData{Price: 3.0, MarketCap: 300, Volume24h: 30, PriceChange24hPct: 3}

	tests := []struct {
		name       string
		payloads   map[model.ProviderName]model.ProviderPayload
		wantSource model.ProviderName
		wantPrice  float64
	}{
		{
			name: "all usable selects first in priority",
			payloads: map[model.ProviderName]model.ProviderPayload{
				model.ProviderCoinGecko:   okMarket(model.ProviderCoinGecko, coingecko),
				model.ProviderDexScreener: okMarket(model.ProviderDexScreener, dexscreener),
				model.ProviderBirdeye:     okMarket(model.ProviderBirdeye, birdeye),
			},
			wantSource: model.ProviderCoinGecko,
			wantPrice:  1.0,
		},
		{
			name: "first absent falls back to second",
			payloads: map[model.ProviderName]model.ProviderPayload{
				model.ProviderCoinGecko:   absent(model.ProviderCoinGecko),
				model.ProviderDexScreener: okMarket(model.ProviderDexScreener, dexscreener),
				model.ProviderBirdeye:     okMarket(model.ProviderBirdeye, birdeye),
			},
			wantSource: model.ProviderDexScreener,
			wantPrice:  2.0,
		},
		{
			name: "zero price is not usable",
			payloads: map[model.ProviderName]model.ProviderPayload{
				model.ProviderCoinGecko:   okMarket(model.ProviderCoinGecko, model.MarketData{Price: 0, MarketCap: 100}),
				model.ProviderDexScreener: absent(model.ProviderDexScreener),
				model.ProviderBirdeye:     okMarket(model.ProviderBirdeye, birdeye),
			},
			wantSource: model.ProviderBirdeye,
			wantPrice:  3.0,
		},
		{
			name: "all unusable yields none",
			payloads: map[model.ProviderName]model.ProviderPayload{
				model.ProviderCoinGecko:   absent(model.ProviderCoinGecko),
				model.ProviderDexScreener: absent(model.ProviderDexScreener),
				model.ProviderBirdeye:     absent(model.ProviderBirdeye),
			},
			wantSource: model.SourceNone,
			wantPrice:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Reconcile(tt.payloads, DefaultOptions())
			assert.Equal(t, tt.wantSource, m.PrimarySource)
			assert.Equal(t, tt.wantPrice, m.CurrentPrice)
		})
	}
}

// The price family must trace entirely to the winner; a losing provider's
// family fields never leak into the result.
func TestReconcile_NoFamilyMixing(t *testing.T) {
	payloads := map[model.ProviderName]model.ProviderPayload{
		model.ProviderCoinGecko: okMarket(model.ProviderCoinGecko, model.MarketData{
			Price: 1.5, MarketCap: 1000, Volume24h: 50, PriceChange24hPct: -3,
		}),
		model.ProviderDexScreener: okMarket(model.ProviderDexScreener, model.MarketData{
			Price: 9.9, MarketCap: 9999, Volume24h: 999, PriceChange24hPct: 99,
			LiquidityUSD: 123, FullyDilutedValue: 456, TxCount24h: 7, HasDexFields: true,
		}),
	}

	m := Reconcile(payloads, DefaultOptions())

	assert.Equal(t, model.ProviderCoinGecko, m.PrimarySource)
	assert.Equal(t, 1.5, m.CurrentPrice)
	assert.Equal(t, 1000.0, m.MarketCap)
	assert.Equal(t, 50.0, m.Volume24h)
	assert.Equal(t, -3.0, m.PriceChange24hPct)

	// DEX-only fields still come from the DEX provider.
	assert.Equal(t, 123.0, m.LiquidityUSD)
	assert.Equal(t, 456.0, m.FullyDilutedValue)
	assert.Equal(t, 7, m.TxCount24h)
}

func TestReconcile_HistoricalIndependentOfWinner(t *testing.T) {
	// CoinGecko has history but no usable price; DexScreener wins the
	// price family, yet ATH data still fills from CoinGecko.
	payloads := map[model.ProviderName]model.ProviderPayload{
		model.ProviderCoinGecko: okMarket(model.ProviderCoinGecko, model.MarketData{
			Price:       0,
			AllTimeHigh: 10, AllTimeLow: 0.1, ATHChangePct: -80, HasHistory: true,
		}),
		model.ProviderDexScreener: okMarket(model.ProviderDexScreener, model.MarketData{
			Price: 2, MarketCap: 500, HasDexFields: true,
		}),
	}

	m := Reconcile(payloads, DefaultOptions())

	assert.Equal(t, model.ProviderDexScreener, m.PrimarySource)
	assert.Equal(t, 10.0, m.AllTimeHigh)
	assert.Equal(t, -80.0, m.ATHChangePct)
	assert.InDelta(t, 0.2, m.PriceToATHRatio, 1e-9)
}

func TestReconcile_SupplyDerivation(t *testing.T) {
	tests := []struct {
		name     string
		market   model.MarketData
		wantCirc float64
		wantTot  float64
	}{
		{
			name:     "derived from market cap over price",
			market:   model.MarketData{Price: 2, MarketCap: 1000},
			wantCirc: 500,
			wantTot:  500,
		},
		{
			name:     "total from FDV when above market cap",
			market:   model.MarketData{Price: 2, MarketCap: 1000, FullyDilutedValue: 3000, HasDexFields: true},
			wantCirc: 500,
			wantTot:  1500,
		},
		{
			name:     "provider supply kept verbatim",
			market:   model.MarketData{Price: 2, MarketCap: 1000, CirculatingSupply: 42, TotalSupply: 84, HasSupply: true},
			wantCirc: 42,
			wantTot:  84,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloads := map[model.ProviderName]model.ProviderPayload{
				model.ProviderDexScreener: okMarket(model.ProviderDexScreener, tt.market),
			}
			m := Reconcile(payloads, DefaultOptions())
			assert.InDelta(t, tt.wantCirc, m.CirculatingSupply, 1e-9)
			assert.InDelta(t, tt.wantTot, m.TotalSupply, 1e-9)
		})
	}
}

func TestReconcile_SanityBounds(t *testing.T) {
	opts := Options{MaxMarketCapUSD: 1000, MaxVolumeMultiple: 10}

	tests := []struct {
		name       string
		marketCap  float64
		volume     float64
		wantMcap   float64
		wantVolume float64
	}{
		{
			name:      "market cap at ceiling accepted",
			marketCap: 1000, volume: 100,
			wantMcap: 1000, wantVolume: 100,
		},
		{
			name:      "market cap one above ceiling rejected",
			marketCap: 1001, volume: 100,
			wantMcap: 0, wantVolume: 100,
		},
		{
			name:      "volume at multiple accepted",
			marketCap: 100, volume: 1000,
			wantMcap: 100, wantVolume: 1000,
		},
		{
			name:      "volume above multiple rejected",
			marketCap: 100, volume: 1001,
			wantMcap: 100, wantVolume: 0,
		},
		{
			name:      "negative market cap rejected",
			marketCap: -5, volume: 100,
			wantMcap: 0, wantVolume: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payloads := map[model.ProviderName]model.ProviderPayload{
				model.ProviderCoinGecko: okMarket(model.ProviderCoinGecko, model.MarketData{
					Price: 1, MarketCap: tt.marketCap, Volume24h: tt.volume,
					CirculatingSupply: 1, HasSupply: true,
				}),
			}
			m := Reconcile(payloads, opts)
			assert.Equal(t, tt.wantMcap, m.MarketCap)
			assert.Equal(t, tt.wantVolume, m.Volume24h)
		})
	}
}

func TestReconcile_DerivedRatios(t *testing.T) {
	payloads := map[model.ProviderName]model.ProviderPayload{
		model.ProviderCoinGecko: okMarket(model.ProviderCoinGecko, model.MarketData{
			Price: 8, MarketCap: 1000, Volume24h: 120,
			AllTimeHigh: 10, HasHistory: true,
			CirculatingSupply: 125, HasSupply: true,
		}),
		model.ProviderDexScreener: okMarket(model.ProviderDexScreener, model.MarketData{
			Price: 8, LiquidityUSD: 250, HasDexFields: true,
		}),
	}

	m := Reconcile(payloads, DefaultOptions())

	assert.InDelta(t, 0.12, m.VolumeToMarketCapRatio, 1e-9)
	assert.InDelta(t, 0.8, m.PriceToATHRatio, 1e-9)
	assert.InDelta(t, 0.25, m.LiquidityToMarketCapRatio, 1e-9)
}

func TestReconcile_RatiosTotalOnZeroDenominators(t *testing.T) {
	m := Reconcile(map[model.ProviderName]model.ProviderPayload{}, DefaultOptions())

	assert.Equal(t, model.SourceNone, m.PrimarySource)
	assert.Zero(t, m.VolumeToMarketCapRatio)
	assert.Zero(t, m.PriceToATHRatio)
	assert.Zero(t, m.LiquidityToMarketCapRatio)
	assert.False(t, m.HasUsablePrice())
}

func TestReconcile_TraderPayloadPopulatesPerformance(t *testing.T) {
	payloads := map[model.ProviderName]model.ProviderPayload{
		model.ProviderSolanaTracker: {
			Provider: model.ProviderSolanaTracker,
			Status:   model.StatusOK,
			Traders: []model.TraderRecord{
				{Wallet: "a", RealizedPnL: 100},
				{Wallet: "b", RealizedPnL: -50},
			},
		},
	}

	m := Reconcile(payloads, DefaultOptions())

	if assert.NotNil(t, m.Trader) {
		assert.Equal(t, 2, m.Trader.TotalTraders)
		assert.Equal(t, 50.0, m.Trader.WinRatePct)
	}
}

func TestReconcile_AbsentTraderProviderLeavesNil(t *testing.T) {
	payloads := map[model.ProviderName]model.ProviderPayload{
		model.ProviderSolanaTracker: absent(model.ProviderSolanaTracker),
	}
	m := Reconcile(payloads, DefaultOptions())
	assert.Nil(t, m.Trader)
}

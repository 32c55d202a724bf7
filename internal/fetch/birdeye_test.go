package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
)

func TestBirdeyeFetch_NormalizesOverview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/token_overview", r.URL.Path)
		assert.Equal(t, usdcMint, r.URL.Query().Get("address"))
		assert.Equal(t, "solana", r.Header.Get("x-chain"))
		w.Write([]byte(`{
			"success": true,
			"data": {
				"price": 0.99998,
				"mc": 32000000000,
				"v24hUSD": 5400000000,
				"priceChange24hPercent": -0.01,
				"liquidity": 120000000
			}
		}`))
	}))
	defer srv.Close()

	c := NewBirdeyeClient(config.Config{BirdeyeURL: srv.URL})
	p, err := c.Fetch(context.Background(), mustClassify(t, usdcMint))
	require.NoError(t, err)

	assert.Equal(t, model.ProviderBirdeye, p.Provider)
	assert.Equal(t, model.StatusOK, p.Status)
	require.NotNil(t, p.Market)

	m := p.Market
	assert.Equal(t, 0.99998, m.Price)
	assert.Equal(t, 32_000_000_000.0, m.MarketCap)
	assert.Equal(t, 5_400_000_000.0, m.Volume24h)
	assert.Equal(t, -0.01, m.PriceChange24hPct)

	// Birdeye contributes the price family only.
	assert.Zero(t, m.LiquidityUSD)
	assert.False(t, m.HasDexFields)
	assert.False(t, m.HasSupply)
	assert.False(t, m.HasHistory)
}

func TestBirdeyeFetch_SuccessFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "data": {}}`))
	}))
	defer srv.Close()

	c := NewBirdeyeClient(config.Config{BirdeyeURL: srv.URL})
	_, err := c.Fetch(context.Background(), mustClassify(t, usdcMint))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "success=false")
}

func TestBirdeyeFetch_RejectsNonSolana(t *testing.T) {
	c := NewBirdeyeClient(config.Config{BirdeyeURL: "http://example.invalid"})
	_, err := c.Fetch(context.Background(), mustClassify(t, "PEPE"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solana")
}

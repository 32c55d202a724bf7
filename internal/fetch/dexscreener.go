package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// DexScreenerClient implements a client for the DexScreener API. It is the
// sole source of the DEX-only fields (liquidity, FDV, transaction counts).
type DexScreenerClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewDexScreenerClient creates a new DexScreener API client
func NewDexScreenerClient(cfg config.Config) *DexScreenerClient {
	return &DexScreenerClient{
		baseURL:    cfg.DexScreenerURL,
		httpClient: StandardClient(newRetryClient()),
		limiter:    newProviderLimiter(120),
	}
}

func (c *DexScreenerClient) Name() model.ProviderName {
	return model.ProviderDexScreener
}

// dexPair matches one pair object in the DexScreener search response.
type dexPair struct {
	ChainID     string `json:"chainId"`
	DexID       string `json:"dexId"`
	PairAddress string `json:"pairAddress"`
	PriceUsd    string `json:"priceUsd"`
	Txns        struct {
		H24 struct {
			Buys  int `json:"buys"`
			Sells int `json:"sells"`
		} `json:"h24"`
	} `json:"txns"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
	Liquidity *struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
}

// Fetch retrieves pair data from DexScreener and normalizes the deepest
// pair by USD liquidity. Search works for both addresses and symbols.
func (c *DexScreenerClient) Fetch(ctx context.Context, tok token.Info) (model.ProviderPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/latest/dex/search?q=%s", c.baseURL, url.QueryEscape(tok.Raw))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching pairs from DexScreener: %s", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error fetching data from DexScreener: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ProviderPayload{}, fmt.Errorf("DexScreener API error: status %d", resp.StatusCode)
	}

	var response struct {
		Pairs []dexPair `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error decoding response: %w", err)
	}
	if len(response.Pairs) == 0 {
		return model.ProviderPayload{}, fmt.Errorf("no pairs found for %q", tok.Raw)
	}

	best := bestPair(response.Pairs)
	price, _ := strconv.ParseFloat(best.PriceUsd, 64)

	market := &model.MarketData{
		Price:             price,
		MarketCap:         best.MarketCap,
		Volume24h:         best.Volume.H24,
		PriceChange24hPct: best.PriceChange.H24,

		FullyDilutedValue: best.FDV,
		TxCount24h:        best.Txns.H24.Buys + best.Txns.H24.Sells,
		HasDexFields:      true,
	}
	if best.Liquidity != nil {
		market.LiquidityUSD = best.Liquidity.USD
	}

	logrus.WithFields(logrus.Fields{
		"provider":  "dexscreener",
		"pair":      best.PairAddress,
		"dex":       best.DexID,
		"liquidity": market.LiquidityUSD,
	}).Debug("DexScreener payload normalized")

	return okPayload(model.ProviderDexScreener, market), nil
}

// bestPair picks the pair with the deepest USD liquidity. The search
// endpoint returns every pool the token trades in; the deepest one is the
// least manipulable snapshot.
func bestPair(pairs []dexPair) dexPair {
	best := pairs[0]
	bestLiq := liquidityOf(best)
	for _, p := range pairs[1:] {
		if l := liquidityOf(p); l > bestLiq {
			best = p
			bestLiq = l
		}
	}
	return best
}

func liquidityOf(p dexPair) float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

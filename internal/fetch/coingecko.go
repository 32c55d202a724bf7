package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// CoinGeckoClient implements a client for the CoinGecko API. It is the only
// provider offering supply, historical, and community/developer data.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
}

// NewCoinGeckoClient creates a new CoinGecko API client
func NewCoinGeckoClient(cfg config.Config) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    cfg.CoinGeckoURL,
		httpClient: StandardClient(newRetryClient()),
		apiKey:     getAPIKey(cfg, "coingecko"),
		limiter:    newProviderLimiter(30), // free tier: 10-50 calls/minute
	}
}

func (c *CoinGeckoClient) Name() model.ProviderName {
	return model.ProviderCoinGecko
}

// coinGeckoResponse matches the /coins/{id} response shape, reduced to the
// fields the pipeline consumes.
type coinGeckoResponse struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	MarketData struct {
		CurrentPrice struct {
			USD float64 `json:"usd"`
		} `json:"current_price"`
		MarketCap struct {
			USD float64 `json:"usd"`
		} `json:"market_cap"`
		TotalVolume struct {
			USD float64 `json:"usd"`
		} `json:"total_volume"`
		PriceChange24h    float64 `json:"price_change_percentage_24h"`
		CirculatingSupply float64 `json:"circulating_supply"`
		TotalSupply       float64 `json:"total_supply"`
		MaxSupply         float64 `json:"max_supply"`
		ATH               struct {
			USD float64 `json:"usd"`
		} `json:"ath"`
		ATL struct {
			USD float64 `json:"usd"`
		} `json:"atl"`
		ATHChangePct struct {
			USD float64 `json:"usd"`
		} `json:"ath_change_percentage"`
	} `json:"market_data"`
	CommunityScore      float64 `json:"community_score"`
	DeveloperScore      float64 `json:"developer_score"`
	PublicInterestScore float64 `json:"public_interest_score"`
	MarketCapRank       int     `json:"market_cap_rank"`
}

// Fetch retrieves token data from CoinGecko. Contract addresses go through
// the per-platform contract endpoint, symbols through the coin endpoint.
func (c *CoinGeckoClient) Fetch(ctx context.Context, tok token.Info) (model.ProviderPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.endpointFor(tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching token data from CoinGecko: %s", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error fetching data from CoinGecko: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.ProviderPayload{}, fmt.Errorf("CoinGecko API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var response coinGeckoResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error decoding response: %w", err)
	}

	md := response.MarketData
	market := &model.MarketData{
		Price:             md.CurrentPrice.USD,
		MarketCap:         md.MarketCap.USD,
		Volume24h:         md.TotalVolume.USD,
		PriceChange24hPct: md.PriceChange24h,

		CirculatingSupply: md.CirculatingSupply,
		TotalSupply:       md.TotalSupply,
		MaxSupply:         md.MaxSupply,
		HasSupply:         md.CirculatingSupply > 0 || md.TotalSupply > 0,

		AllTimeHigh:  md.ATH.USD,
		AllTimeLow:   md.ATL.USD,
		ATHChangePct: md.ATHChangePct.USD,
		HasHistory:   md.ATH.USD > 0,

		CommunityScore:      response.CommunityScore,
		DeveloperScore:      response.DeveloperScore,
		PublicInterestScore: response.PublicInterestScore,
		MarketCapRank:       response.MarketCapRank,
		HasCommunity:        response.CommunityScore > 0 || response.DeveloperScore > 0,
	}

	logrus.WithFields(logrus.Fields{
		"provider": "coingecko",
		"id":       response.ID,
		"price":    market.Price,
	}).Debug("CoinGecko payload normalized")

	return okPayload(model.ProviderCoinGecko, market), nil
}

// endpointFor maps the identifier kind to the right CoinGecko route.
func (c *CoinGeckoClient) endpointFor(tok token.Info) string {
	if tok.Kind == token.KindAddress {
		platform := "ethereum"
		if tok.Chain == token.ChainSolana {
			platform = "solana"
		}
		return fmt.Sprintf("%s/coins/%s/contract/%s", c.baseURL, platform, tok.Raw)
	}
	// Symbols are resolved as coin ids, the common shortcut for major tokens.
	return fmt.Sprintf("%s/coins/%s", c.baseURL, strings.ToLower(tok.Symbol()))
}

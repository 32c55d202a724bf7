package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// BirdeyeClient implements a client for the Birdeye token-overview API.
// Birdeye only covers Solana, so the gateway gates it to Solana addresses;
// it serves as the last price-family fallback in reconciliation.
type BirdeyeClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
}

// NewBirdeyeClient creates a new Birdeye API client
func NewBirdeyeClient(cfg config.Config) *BirdeyeClient {
	return &BirdeyeClient{
		baseURL:    cfg.BirdeyeURL,
		httpClient: StandardClient(newRetryClient()),
		apiKey:     getAPIKey(cfg, "birdeye"),
		limiter:    newProviderLimiter(60),
	}
}

func (c *BirdeyeClient) Name() model.ProviderName {
	return model.ProviderBirdeye
}

// Fetch retrieves the token overview from Birdeye.
func (c *BirdeyeClient) Fetch(ctx context.Context, tok token.Info) (model.ProviderPayload, error) {
	if !tok.IsSolanaAddress() {
		return model.ProviderPayload{}, fmt.Errorf("birdeye only resolves solana addresses, got %s/%s", tok.Kind, tok.Chain)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/defi/token_overview?address=%s", c.baseURL, tok.Raw)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("x-chain", "solana")
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching token overview from Birdeye: %s", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error fetching data from Birdeye: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ProviderPayload{}, fmt.Errorf("Birdeye API error: status %d", resp.StatusCode)
	}

	var response struct {
		Success bool `json:"success"`
		Data    struct {
			Price             float64 `json:"price"`
			MarketCap         float64 `json:"mc"`
			Volume24hUSD      float64 `json:"v24hUSD"`
			PriceChange24hPct float64 `json:"priceChange24hPercent"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error decoding response: %w", err)
	}
	if !response.Success {
		return model.ProviderPayload{}, fmt.Errorf("Birdeye returned success=false for %q", tok.Raw)
	}

	d := response.Data
	market := &model.MarketData{
		Price:             d.Price,
		MarketCap:         d.MarketCap,
		Volume24h:         d.Volume24hUSD,
		PriceChange24hPct: d.PriceChange24hPct,
	}

	logrus.WithFields(logrus.Fields{
		"provider": "birdeye",
		"price":    d.Price,
	}).Debug("Birdeye payload normalized")

	return okPayload(model.ProviderBirdeye, market), nil
}

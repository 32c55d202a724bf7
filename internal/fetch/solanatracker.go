package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// SolanaTrackerClient fetches top-trader records for a Solana token. It is
// the chain-gated trader-analytics provider; its records feed the
// TraderPerformance aggregation in reconciliation.
type SolanaTrackerClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	limiter    *rate.Limiter
}

// NewSolanaTrackerClient creates a new Solana trader-analytics client
func NewSolanaTrackerClient(cfg config.Config) *SolanaTrackerClient {
	return &SolanaTrackerClient{
		baseURL:    cfg.SolanaTrackerURL,
		httpClient: StandardClient(newRetryClient()),
		apiKey:     getAPIKey(cfg, "solanatracker"),
		limiter:    newProviderLimiter(60),
	}
}

func (c *SolanaTrackerClient) Name() model.ProviderName {
	return model.ProviderSolanaTracker
}

// Fetch retrieves top-trader PnL records. No market snapshot is produced;
// the payload carries trader records only.
func (c *SolanaTrackerClient) Fetch(ctx context.Context, tok token.Info) (model.ProviderPayload, error) {
	if !tok.IsSolanaAddress() {
		return model.ProviderPayload{}, fmt.Errorf("solanatracker only resolves solana addresses, got %s/%s", tok.Kind, tok.Chain)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/top-traders/%s", c.baseURL, tok.Raw)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	logrus.Debugf("Fetching top traders from SolanaTracker: %s", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error fetching data from SolanaTracker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ProviderPayload{}, fmt.Errorf("SolanaTracker API error: status %d", resp.StatusCode)
	}

	var entries []struct {
		Wallet string  `json:"wallet"`
		Held   float64 `json:"held"`
		Sold   float64 `json:"sold"`
		Total  float64 `json:"total"`
		PnL    struct {
			Realized float64 `json:"realized"`
		} `json:"pnl"`
		Volume float64 `json:"total_invested"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return model.ProviderPayload{}, fmt.Errorf("error decoding response: %w", err)
	}

	records := make([]model.TraderRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, model.TraderRecord{
			Wallet:      e.Wallet,
			RealizedPnL: e.PnL.Realized,
			Volume:      e.Volume,
		})
	}

	logrus.WithFields(logrus.Fields{
		"provider": "solanatracker",
		"traders":  len(records),
	}).Debug("SolanaTracker payload normalized")

	return model.ProviderPayload{
		Provider:  model.ProviderSolanaTracker,
		Status:    model.StatusOK,
		FetchedAt: time.Now().Unix(),
		Traders:   records,
	}, nil
}

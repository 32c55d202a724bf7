// Package fetch provides provider-specific clients for retrieving market
// data and the gateway that fans out across all of them.
package fetch

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// Provider defines the interface every market-data client must implement.
// Fetch returns a normalized payload; any transport or decoding failure is
// returned as an error and converted to an absent payload by the gateway.
type Provider interface {
	Name() model.ProviderName
	Fetch(ctx context.Context, tok token.Info) (model.ProviderPayload, error)
}

// newRetryClient creates a new HTTP client with retry capabilities. Retries
// live here, inside the provider clients; the gateway itself never retries.
func newRetryClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 3
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 3 * time.Second
	c.Logger = nil
	return c
}

// StandardClient converts a retryablehttp.Client to a standard http.Client
func StandardClient(retryClient *retryablehttp.Client) *http.Client {
	return retryClient.StandardClient()
}

// newProviderLimiter paces calls for free-tier upstream APIs.
func newProviderLimiter(perMinute int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
}

// getAPIKey retrieves an API key for a specific provider from configuration
func getAPIKey(cfg config.Config, provider string) string {
	if k, ok := cfg.APIKeys[provider]; ok {
		return k
	}
	return ""
}

// okPayload wraps normalized market data in a successful payload.
func okPayload(name model.ProviderName, market *model.MarketData) model.ProviderPayload {
	return model.ProviderPayload{
		Provider:  name,
		Status:    model.StatusOK,
		FetchedAt: time.Now().Unix(),
		Market:    market,
	}
}

// AbsentPayload builds the explicit absence marker for a failed fetch.
func AbsentPayload(name model.ProviderName, reason string) model.ProviderPayload {
	return model.ProviderPayload{
		Provider:  name,
		Status:    model.StatusAbsent,
		FetchedAt: time.Now().Unix(),
		Err:       reason,
	}
}

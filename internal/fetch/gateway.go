package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// Gateway fans one token lookup out across all applicable providers and
// waits for every call to settle. A slow or failing provider never blocks
// or fails the others; its result becomes an absent payload.
type Gateway struct {
	always      []Provider
	solanaGated []Provider
	timeout     time.Duration
}

// NewGateway builds the default provider set: CoinGecko and DexScreener
// for every identifier, Birdeye and SolanaTracker only for Solana
// contract addresses.
func NewGateway(cfg config.Config) *Gateway {
	return &Gateway{
		always: []Provider{
			NewCoinGeckoClient(cfg),
			NewDexScreenerClient(cfg),
		},
		solanaGated: []Provider{
			NewBirdeyeClient(cfg),
			NewSolanaTrackerClient(cfg),
		},
		timeout: cfg.ProviderTimeout,
	}
}

// NewGatewayWithProviders wires an explicit provider set; used by tests and
// by callers that need a reduced set.
func NewGatewayWithProviders(timeout time.Duration, always []Provider, solanaGated []Provider) *Gateway {
	return &Gateway{always: always, solanaGated: solanaGated, timeout: timeout}
}

// FetchAll issues every applicable provider call concurrently and returns
// once all have settled. The returned map always has one entry per
// attempted provider; failures are absent payloads, never errors.
func (g *Gateway) FetchAll(ctx context.Context, tok token.Info) map[model.ProviderName]model.ProviderPayload {
	providers := g.providersFor(tok)

	type fetchResult struct {
		name    model.ProviderName
		payload model.ProviderPayload
	}

	var wg sync.WaitGroup
	resultCh := make(chan fetchResult, len(providers))

	for _, provider := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			// Per-provider timeout: one unresponsive upstream must not
			// stall the fan-in beyond this bound.
			providerCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()

			payload, err := p.Fetch(providerCtx, tok)
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"provider": p.Name(),
					"token":    tok.Raw,
				}).Warnf("Provider fetch failed: %v", err)
				resultCh <- fetchResult{p.Name(), AbsentPayload(p.Name(), err.Error())}
				return
			}
			resultCh <- fetchResult{p.Name(), payload}
		}(provider)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	payloads := make(map[model.ProviderName]model.ProviderPayload, len(providers))
	for r := range resultCh {
		payloads[r.name] = r.payload
	}

	logrus.WithFields(logrus.Fields{
		"token":     tok.Raw,
		"attempted": len(providers),
		"settled":   len(payloads),
	}).Debug("Provider fan-out complete")

	return payloads
}

func (g *Gateway) providersFor(tok token.Info) []Provider {
	providers := make([]Provider, 0, len(g.always)+len(g.solanaGated))
	providers = append(providers, g.always...)
	if tok.IsSolanaAddress() {
		providers = append(providers, g.solanaGated...)
	}
	return providers
}

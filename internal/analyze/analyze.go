// Package analyze orchestrates one full analysis run: provider fan-out,
// reconciliation, primary scoring, the consensus sub-scorer pipeline, and
// result shaping.
package analyze

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-insight-ea/internal/config"
	"github.com/yourorg/token-insight-ea/internal/consensus"
	"github.com/yourorg/token-insight-ea/internal/fetch"
	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/otel"
	"github.com/yourorg/token-insight-ea/internal/reconcile"
	"github.com/yourorg/token-insight-ea/internal/score"
	"github.com/yourorg/token-insight-ea/internal/token"
)

// PayloadSource abstracts the provider gateway so tests can feed canned
// payloads through the full pipeline.
type PayloadSource interface {
	FetchAll(ctx context.Context, tok token.Info) map[model.ProviderName]model.ProviderPayload
}

// Analyzer runs the complete pipeline for one token identifier. It holds
// no per-run state: every run builds fresh payload/metric/score objects.
type Analyzer struct {
	gateway       PayloadSource
	reconcileOpts reconcile.Options
	scorer        *score.Scorer
	subScorers    []consensus.SubScorer
	consensusOpts consensus.Options
}

// New builds an analyzer with the default provider gateway and the
// configured reconciliation and consensus tuning.
func New(cfg config.Config) *Analyzer {
	return NewWithGateway(cfg, fetch.NewGateway(cfg))
}

// NewWithGateway builds an analyzer over an explicit payload source.
func NewWithGateway(cfg config.Config, gateway PayloadSource) *Analyzer {
	return &Analyzer{
		gateway: gateway,
		reconcileOpts: reconcile.Options{
			MaxMarketCapUSD:   cfg.MaxMarketCapUSD,
			MaxVolumeMultiple: cfg.MaxVolumeMultiple,
		},
		scorer:     score.New(),
		subScorers: consensus.DefaultSubScorers(),
		consensusOpts: consensus.Options{
			Weights:             consensus.WeightsByName(cfg.ConsensusWeights),
			VarianceThreshold:   cfg.VarianceThreshold,
			DisagreementPenalty: cfg.DisagreementPenalty,
		},
	}
}

// Analyze executes one run. The only error path is invalid input; every
// data-quality problem downstream degrades to defaults inside the result.
func (a *Analyzer) Analyze(ctx context.Context, identifier string) (model.AnalysisResult, error) {
	start := time.Now()

	ctx, span := otel.Tracer().Start(ctx, "analyze")
	defer span.End()

	tok, err := token.Classify(identifier)
	if err != nil {
		err = fmt.Errorf("invalid token identifier: %w", err)
		otel.RecordError(ctx, err)
		return model.AnalysisResult{}, err
	}

	log := logrus.WithFields(logrus.Fields{
		"token": tok.Raw,
		"kind":  tok.Kind,
		"chain": tok.Chain,
	})
	log.Info("Starting analysis run")

	payloads := a.fetchStage(ctx, tok)
	metrics := a.reconcileStage(ctx, payloads)

	primary := a.scorer.Score(metrics)

	subResults := a.consensusStage(ctx, metrics)
	cons := consensus.Aggregate(subResults, a.consensusOpts)

	result := a.format(tok, payloads, metrics, primary, cons, start)

	log.WithFields(logrus.Fields{
		"consensus_score": result.ConsensusScore,
		"recommendation":  result.Recommendation,
		"primary_source":  metrics.PrimarySource,
		"duration_ms":     result.DurationMs,
	}).Info("Analysis run complete")

	return result, nil
}

func (a *Analyzer) fetchStage(ctx context.Context, tok token.Info) map[model.ProviderName]model.ProviderPayload {
	ctx, span := otel.Tracer().Start(ctx, "fetch")
	defer span.End()
	return a.gateway.FetchAll(ctx, tok)
}

func (a *Analyzer) reconcileStage(ctx context.Context, payloads map[model.ProviderName]model.ProviderPayload) model.CanonicalMetrics {
	_, span := otel.Tracer().Start(ctx, "reconcile")
	defer span.End()
	return reconcile.Reconcile(payloads, a.reconcileOpts)
}

func (a *Analyzer) consensusStage(ctx context.Context, metrics model.CanonicalMetrics) []model.ScoreResult {
	ctx, span := otel.Tracer().Start(ctx, "consensus")
	defer span.End()
	return consensus.RunAll(ctx, a.subScorers, metrics)
}

// format shapes the run into the externally consumed result object. The
// consensus verdict leads; the primary rule score rides along for audit and
// its findings/risks are merged ahead of the consensus ones.
func (a *Analyzer) format(
	tok token.Info,
	payloads map[model.ProviderName]model.ProviderPayload,
	metrics model.CanonicalMetrics,
	primary model.ScoreResult,
	cons model.ConsensusResult,
	start time.Time,
) model.AnalysisResult {
	used := make([]model.ProviderName, 0, len(payloads))
	for _, name := range []model.ProviderName{
		model.ProviderCoinGecko,
		model.ProviderDexScreener,
		model.ProviderBirdeye,
		model.ProviderSolanaTracker,
	} {
		if p, ok := payloads[name]; ok && p.Status == model.StatusOK {
			used = append(used, name)
		}
	}

	return model.AnalysisResult{
		Token: tok.Raw,
		Chain: string(tok.Chain),

		ConsensusScore: cons.ConsensusScore,
		Recommendation: cons.Recommendation,
		RiskLevel:      cons.RiskLevel,
		Confidence:     cons.Confidence,

		Findings:  mergeUnique(primary.Findings, cons.Findings),
		Risks:     mergeUnique(primary.Risks, cons.Risks),
		Conflicts: cons.Conflicts,

		PrimaryScore: primary.Score,

		KeyMetrics: metrics,
		Sources: model.SourceAttribution{
			PrimarySource:   metrics.PrimarySource,
			DataSourcesUsed: used,
		},

		InsufficientData: cons.InsufficientData,
		AnalyzedAt:       start.Unix(),
		DurationMs:       time.Since(start).Milliseconds(),
	}
}

// mergeUnique concatenates two string lists, dropping exact duplicates
// while preserving order.
func mergeUnique(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	merged := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		merged = append(merged, s)
	}
	return merged
}

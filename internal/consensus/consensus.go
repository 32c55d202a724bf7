package consensus

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-insight-ea/internal/model"
	"github.com/yourorg/token-insight-ea/internal/score"
)

// Weights maps sub-analysis tags to their blend weight. Weights are
// renormalized over the sub-scores that actually succeeded, so a missing
// input never dilutes the average.
type Weights map[string]float64

// DefaultWeights is the standard 0.40/0.40/0.20 blend.
func DefaultWeights() Weights {
	return Weights{TagResearch: 0.40, TagMarket: 0.40, TagContract: 0.20}
}

// LegacyWeights is the 0.40/0.35/0.25 blend kept for callers pinned to the
// earlier pipeline tuning. Selected via configuration, never by a code
// branch.
func LegacyWeights() Weights {
	return Weights{TagResearch: 0.40, TagMarket: 0.35, TagContract: 0.25}
}

// WeightsByName resolves a configured weight-preset name.
func WeightsByName(name string) Weights {
	if name == "legacy" {
		return LegacyWeights()
	}
	return DefaultWeights()
}

// Options tunes aggregation behavior.
type Options struct {
	Weights Weights

	// VarianceThreshold is the population variance of included scores
	// above which the disagreement penalty applies.
	VarianceThreshold float64

	// DisagreementPenalty is subtracted from the consensus score when
	// variance exceeds the threshold.
	DisagreementPenalty int
}

// The canonical neutral defaults for a run where every sub-analysis
// failed. neutralScore sits on the HOLD_WATCH boundary and, paired with
// insufficientConfidence, is distinguishable from a legitimately scored 50.
const (
	neutralScore           = 50
	insufficientConfidence = 0.35
	maxMergedFindings      = 6
	maxMergedRisks         = 6
)

// DefaultOptions returns standard aggregation tuning: a variance threshold
// of 400 (a 20-point standard deviation) and a 10-point penalty.
func DefaultOptions() Options {
	return Options{
		Weights:             DefaultWeights(),
		VarianceThreshold:   400,
		DisagreementPenalty: 10,
	}
}

// Aggregate blends the sub-scores into one consensus verdict. Failed
// sub-scores are excluded and their weight redistributed; when every
// sub-score failed the canonical insufficient-data result is returned
// rather than an error.
func Aggregate(results []model.ScoreResult, opts Options) model.ConsensusResult {
	included := make([]model.ScoreResult, 0, len(results))
	for _, r := range results {
		if r.Failed {
			continue
		}
		if _, ok := opts.Weights[r.Tag]; !ok {
			continue
		}
		included = append(included, r)
	}

	if len(included) == 0 {
		return insufficientDataResult()
	}

	// Weighted average over whatever succeeded.
	var weightedSum, weightTotal float64
	for _, r := range included {
		w := opts.Weights[r.Tag]
		weightedSum += float64(r.Score) * w
		weightTotal += w
	}
	consensusScore := score.Clamp(int(math.Round(weightedSum / weightTotal)))

	conflicts := detectConflicts(included)

	// Disagreement penalty on top of the named cross-checks.
	variance := scoreVariance(included)
	if variance > opts.VarianceThreshold {
		consensusScore = score.Clamp(consensusScore - opts.DisagreementPenalty)
		conflicts = append(conflicts, model.Conflict{
			Code:        "HIGH_VARIANCE",
			Description: fmt.Sprintf("Sub-analyses disagree strongly (variance %.0f)", variance),
			Between:     tagsOf(included),
		})
		logrus.WithFields(logrus.Fields{
			"variance": variance,
			"penalty":  opts.DisagreementPenalty,
		}).Debug("Applied disagreement penalty to consensus score")
	}

	var confidenceSum float64
	for _, r := range included {
		confidenceSum += r.Confidence
	}

	rec, risk := score.Band(consensusScore)
	return model.ConsensusResult{
		ConsensusScore: consensusScore,
		Recommendation: rec,
		RiskLevel:      risk,
		Confidence:     confidenceSum / float64(len(included)),
		Conflicts:      conflicts,
		Findings:       mergeStrings(included, func(r model.ScoreResult) []string { return r.Findings }, maxMergedFindings),
		Risks:          mergeStrings(included, func(r model.ScoreResult) []string { return r.Risks }, maxMergedRisks),
	}
}

// insufficientDataResult is the documented degraded-but-well-formed output
// for a run where nothing could be analyzed.
func insufficientDataResult() model.ConsensusResult {
	rec, risk := score.Band(neutralScore)
	return model.ConsensusResult{
		ConsensusScore:   neutralScore,
		Recommendation:   rec,
		RiskLevel:        risk,
		Confidence:       insufficientConfidence,
		Conflicts:        []model.Conflict{},
		Findings:         []string{},
		Risks:            []string{"Insufficient data: no sub-analysis produced a usable score"},
		InsufficientData: true,
	}
}

// detectConflicts runs the named cross-checks between specific sub-analysis
// pairs, independent of the statistical variance check.
func detectConflicts(included []model.ScoreResult) []model.Conflict {
	conflicts := []model.Conflict{}
	byTag := make(map[string]model.ScoreResult, len(included))
	for _, r := range included {
		byTag[r.Tag] = r
	}

	// Research optimistic while contract analysis sees high risk.
	if research, ok := byTag[TagResearch]; ok {
		if contract, ok := byTag[TagContract]; ok {
			_, researchRisk := score.Band(research.Score)
			_, contractRisk := score.Band(contract.Score)
			if (researchRisk == model.RiskLow || researchRisk == model.RiskMedium) &&
				(contractRisk == model.RiskHigh || contractRisk == model.RiskExtreme) {
				conflicts = append(conflicts, model.Conflict{
					Code:        "RESEARCH_CONTRACT_RISK_SPLIT",
					Description: "Research signals low risk but contract analysis signals high risk",
					Between:     []string{TagResearch, TagContract},
				})
			}
		}

		// Research sentiment positive while market sentiment negative,
		// or the reverse.
		if market, ok := byTag[TagMarket]; ok {
			switch {
			case research.Score >= 60 && market.Score <= 40:
				conflicts = append(conflicts, model.Conflict{
					Code:        "SENTIMENT_SPLIT",
					Description: "Research sentiment positive but market sentiment negative",
					Between:     []string{TagResearch, TagMarket},
				})
			case market.Score >= 60 && research.Score <= 40:
				conflicts = append(conflicts, model.Conflict{
					Code:        "SENTIMENT_SPLIT",
					Description: "Market sentiment positive but research sentiment negative",
					Between:     []string{TagResearch, TagMarket},
				})
			}
		}
	}

	return conflicts
}

// scoreVariance is the population variance of the included scores.
func scoreVariance(included []model.ScoreResult) float64 {
	if len(included) < 2 {
		return 0
	}
	var sum float64
	for _, r := range included {
		sum += float64(r.Score)
	}
	mean := sum / float64(len(included))

	var sq float64
	for _, r := range included {
		d := float64(r.Score) - mean
		sq += d * d
	}
	return sq / float64(len(included))
}

// mergeStrings concatenates one list per sub-score in scorer order and
// truncates to the top limit entries.
func mergeStrings(included []model.ScoreResult, pick func(model.ScoreResult) []string, limit int) []string {
	merged := []string{}
	for _, r := range included {
		merged = append(merged, pick(r)...)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func tagsOf(included []model.ScoreResult) []string {
	tags := make([]string, 0, len(included))
	for _, r := range included {
		tags = append(tags, r.Tag)
	}
	return tags
}

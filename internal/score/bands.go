package score

import (
	"github.com/yourorg/token-insight-ea/internal/model"
)

// band maps a contiguous score range to one recommendation/risk pair.
type band struct {
	min            int
	recommendation model.Recommendation
	riskLevel      model.RiskLevel
}

// bands is the monotonic, non-overlapping partition of [0,100]. The primary
// scorer and the consensus aggregator both classify through it.
var bands = []band{
	{80, model.RecommendationStrongBuy, model.RiskLow},
	{65, model.RecommendationBuy, model.RiskMedium},
	{45, model.RecommendationHoldWatch, model.RiskMediumHigh},
	{25, model.RecommendationAvoid, model.RiskHigh},
	{0, model.RecommendationDanger, model.RiskExtreme},
}

// Band classifies a clamped score into its recommendation and risk level.
func Band(score int) (model.Recommendation, model.RiskLevel) {
	for _, b := range bands {
		if score >= b.min {
			return b.recommendation, b.riskLevel
		}
	}
	return model.RecommendationDanger, model.RiskExtreme
}

// Clamp bounds a raw point sum to the [0,100] score range.
func Clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

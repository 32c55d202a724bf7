package reconcile

import (
	"github.com/yourorg/token-insight-ea/internal/model"
)

// ComputeTraderPerformance classifies each trader record by the sign of its
// realized PnL and aggregates win/loss statistics. All outputs are
// non-negative; losses are reported as magnitudes. An empty record set
// yields the zero value with no division.
func ComputeTraderPerformance(records []model.TraderRecord) model.TraderPerformance {
	perf := model.TraderPerformance{}
	if len(records) == 0 {
		return perf
	}

	var profitSum, lossSum float64
	for _, r := range records {
		perf.TotalTraders++
		perf.TotalVolume += clampNonNegative(r.Volume)

		switch {
		case r.RealizedPnL > 0:
			perf.ProfitableTraders++
			profitSum += r.RealizedPnL
			if r.RealizedPnL > perf.TopProfitAmount {
				perf.TopProfitAmount = r.RealizedPnL
			}
		case r.RealizedPnL < 0:
			perf.LosingTraders++
			loss := -r.RealizedPnL
			lossSum += loss
			if loss > perf.TopLossAmount {
				perf.TopLossAmount = loss
			}
		}
	}

	if perf.ProfitableTraders > 0 {
		perf.AverageProfit = profitSum / float64(perf.ProfitableTraders)
	}
	if perf.LosingTraders > 0 {
		perf.AverageLoss = lossSum / float64(perf.LosingTraders)
	}
	if perf.TotalTraders > 0 {
		perf.WinRatePct = float64(perf.ProfitableTraders) / float64(perf.TotalTraders) * 100
	}
	if perf.WinRatePct > 100 {
		perf.WinRatePct = 100
	}

	return perf
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

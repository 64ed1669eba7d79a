package backtester

import (
	"math"

	"github.com/quantlane/tradesim/pkg/types"
)

const (
	tradingDaysPerYear = 252.0
	annualRiskFreeRate = 0.02
)

// Metrics summarizes the performance of one simulation run.
type Metrics struct {
	SharpeRatio  float64
	ProfitLoss   float64
	MaxDrawdown  float64
	TotalTrades  int
	ProfitFactor float64
	WinRate      float64
}

// ComputeMetrics derives performance metrics from a simulation result.
// Equity arithmetic is exact; the derived ratios are float64.
func ComputeMetrics(result *types.SimulationResult) Metrics {
	equity := make([]float64, len(result.EquityCurve))
	for i, v := range result.EquityCurve {
		equity[i], _ = v.Float64()
	}
	return Metrics{
		SharpeRatio:  sharpeRatio(equity),
		ProfitLoss:   profitLoss(equity),
		MaxDrawdown:  maxDrawdown(equity),
		TotalTrades:  len(result.ExecutedOrders),
		ProfitFactor: profitFactor(result.ExecutedOrders),
		WinRate:      winRate(result.ExecutedOrders),
	}
}

func dailyReturns(equity []float64) []float64 {
	if len(equity) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		if equity[i-1] == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (equity[i]-equity[i-1])/equity[i-1])
	}
	return returns
}

// sharpeRatio annualizes the mean daily excess return over its
// population standard deviation. Zero when the curve has fewer than two
// points or is flat.
func sharpeRatio(equity []float64) float64 {
	returns := dailyReturns(equity)
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0
	}

	dailyRiskFree := annualRiskFreeRate / tradingDaysPerYear
	return (mean - dailyRiskFree) / stdDev * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown returns the largest peak-to-trough decline as a fraction
// of the peak, in [0,1].
func maxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

func profitLoss(equity []float64) float64 {
	if len(equity) < 2 || equity[0] == 0 {
		return 0
	}
	return (equity[len(equity)-1] - equity[0]) / equity[0]
}

// profitFactor is gross profit over gross loss. Zero with no trades,
// +Inf when no trade lost money.
func profitFactor(orders []types.Order) float64 {
	if len(orders) == 0 {
		return 0
	}
	grossProfit := 0.0
	grossLoss := 0.0
	for _, o := range orders {
		pnl, _ := o.ProfitLoss.Float64()
		if pnl > 0 {
			grossProfit += pnl
		} else if pnl < 0 {
			grossLoss += -pnl
		}
	}
	if grossLoss == 0 {
		return math.Inf(1)
	}
	return grossProfit / grossLoss
}

func winRate(orders []types.Order) float64 {
	if len(orders) == 0 {
		return 0
	}
	wins := 0
	for _, o := range orders {
		if o.ProfitLoss.IsPositive() {
			wins++
		}
	}
	return float64(wins) / float64(len(orders))
}

package strategy

import (
	"fmt"

	"github.com/quantlane/tradesim/pkg/types"
)

// MeanReversion trades z-score deviations of price from its trailing
// mean. The mean and deviation are computed over the period bars
// preceding the current one, so the current bar's move is measured
// against history it did not influence.
type MeanReversion struct {
	baseStrategy
}

// NewMeanReversion creates the strategy with default parameters.
func NewMeanReversion() *MeanReversion {
	s := &MeanReversion{}
	_ = s.Initialize(nil)
	return s
}

func (s *MeanReversion) Name() string { return "Mean Reversion" }

func (s *MeanReversion) Description() string {
	return "Buys when price drops below its trailing mean by a z-score threshold, sells on a symmetric move above"
}

func (s *MeanReversion) Initialize(params map[string]any) error {
	defaults := map[string]any{
		"period":    20,
		"threshold": 2.0,
	}
	if err := s.initParams(defaults, params); err != nil {
		return fmt.Errorf("mean_reversion: %w", err)
	}
	return nil
}

// MinBars requires a full trailing window plus the bar being judged.
func (s *MeanReversion) MinBars() int { return s.intParam("period") + 1 }

func (s *MeanReversion) Reset() { s.resetWindow() }

func (s *MeanReversion) ValidParameters() bool {
	return s.numericParam("period") && s.numericParam("threshold") &&
		s.intParam("period") > 0 && s.decParam("threshold").IsPositive()
}

func (s *MeanReversion) Clone() Strategy {
	clone := &MeanReversion{}
	_ = clone.Initialize(s.cloneParams())
	return clone
}

func (s *MeanReversion) ProcessBar(bar types.MarketBar, positions map[string]*types.Position) *types.Order {
	period := s.intParam("period")
	s.pushPrice(bar.Close, period+1)
	if len(s.prices) < period+1 {
		return nil
	}

	trailing := s.prices[:period]
	mean := sma(trailing)
	stdDev := popStdDev(trailing, mean)
	s.setState("mean", mean)
	s.setState("stdDev", stdDev)
	if stdDev.IsZero() {
		return nil
	}

	zScore := bar.Close.Sub(mean).Div(stdDev)
	s.setState("zScore", zScore)
	threshold := s.decParam("threshold")

	if zScore.LessThan(threshold.Neg()) {
		return buyOrder(bar.Symbol)
	}
	if zScore.GreaterThan(threshold) && holding(positions, bar.Symbol) {
		return sellOrder(bar.Symbol, positions[bar.Symbol].Quantity())
	}
	return nil
}

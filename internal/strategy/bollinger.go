package strategy

import (
	"fmt"

	"github.com/quantlane/tradesim/pkg/types"
)

// BollingerBands trades touches of volatility bands placed a multiple
// of the rolling standard deviation around the rolling mean. The bands
// include the current bar, so a single large move widens the band it is
// measured against.
type BollingerBands struct {
	baseStrategy
}

// NewBollingerBands creates the strategy with default parameters.
func NewBollingerBands() *BollingerBands {
	s := &BollingerBands{}
	_ = s.Initialize(nil)
	return s
}

func (s *BollingerBands) Name() string { return "Bollinger Bands" }

func (s *BollingerBands) Description() string {
	return "Buys when price closes below the lower band, sells an open position when it closes above the upper band"
}

func (s *BollingerBands) Initialize(params map[string]any) error {
	defaults := map[string]any{
		"period":           20,
		"stdDevMultiplier": 2.0,
	}
	if err := s.initParams(defaults, params); err != nil {
		return fmt.Errorf("bollinger: %w", err)
	}
	return nil
}

func (s *BollingerBands) MinBars() int { return s.intParam("period") }

func (s *BollingerBands) Reset() { s.resetWindow() }

func (s *BollingerBands) ValidParameters() bool {
	return s.numericParam("period") && s.numericParam("stdDevMultiplier") &&
		s.intParam("period") > 0 && s.decParam("stdDevMultiplier").IsPositive()
}

func (s *BollingerBands) Clone() Strategy {
	clone := &BollingerBands{}
	_ = clone.Initialize(s.cloneParams())
	return clone
}

func (s *BollingerBands) ProcessBar(bar types.MarketBar, positions map[string]*types.Position) *types.Order {
	period := s.intParam("period")
	s.pushPrice(bar.Close, period)
	if len(s.prices) < period {
		return nil
	}

	mean := sma(s.prices)
	stdDev := popStdDev(s.prices, mean)
	offset := stdDev.Mul(s.decParam("stdDevMultiplier"))
	upper := mean.Add(offset)
	lower := mean.Sub(offset)
	s.setState("middleBand", mean)
	s.setState("upperBand", upper)
	s.setState("lowerBand", lower)

	// Band touches count: a close exactly on a band fires.
	if bar.Close.GreaterThanOrEqual(upper) && holding(positions, bar.Symbol) {
		return sellOrder(bar.Symbol, positions[bar.Symbol].Quantity())
	}
	if bar.Close.LessThanOrEqual(lower) {
		return buyOrder(bar.Symbol)
	}
	return nil
}

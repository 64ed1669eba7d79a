package strategy

import (
	"fmt"

	"github.com/quantlane/tradesim/pkg/types"
)

// SimpleMovingAverage trades price crossing its own moving average. Like
// the dual-average crossover it fires only on the crossing event, not
// while price merely stays on one side.
type SimpleMovingAverage struct {
	baseStrategy

	initialized bool
	priceAbove  bool
}

// NewSimpleMovingAverage creates the strategy with the default window.
func NewSimpleMovingAverage() *SimpleMovingAverage {
	s := &SimpleMovingAverage{}
	_ = s.Initialize(nil)
	return s
}

func (s *SimpleMovingAverage) Name() string { return "Simple Moving Average" }

func (s *SimpleMovingAverage) Description() string {
	return "Buys when price crosses above its moving average, sells on the cross back below"
}

func (s *SimpleMovingAverage) Initialize(params map[string]any) error {
	defaults := map[string]any{
		"windowSize": 20,
	}
	if err := s.initParams(defaults, params); err != nil {
		return fmt.Errorf("sma: %w", err)
	}
	s.initialized = false
	s.priceAbove = false
	return nil
}

func (s *SimpleMovingAverage) MinBars() int { return s.intParam("windowSize") }

func (s *SimpleMovingAverage) Reset() {
	s.resetWindow()
	s.initialized = false
	s.priceAbove = false
}

func (s *SimpleMovingAverage) ValidParameters() bool {
	return s.numericParam("windowSize") && s.intParam("windowSize") > 0
}

func (s *SimpleMovingAverage) Clone() Strategy {
	clone := &SimpleMovingAverage{}
	_ = clone.Initialize(s.cloneParams())
	return clone
}

func (s *SimpleMovingAverage) ProcessBar(bar types.MarketBar, positions map[string]*types.Position) *types.Order {
	window := s.intParam("windowSize")
	s.pushPrice(bar.Close, window)
	if len(s.prices) < window {
		return nil
	}

	avg := sma(s.prices)
	s.setState("movingAverage", avg)

	above := bar.Close.GreaterThan(avg)
	if !s.initialized {
		s.initialized = true
		s.priceAbove = above
		return nil
	}
	if above == s.priceAbove {
		return nil
	}
	s.priceAbove = above

	if above {
		if holding(positions, bar.Symbol) {
			return nil
		}
		return buyOrder(bar.Symbol)
	}
	if holding(positions, bar.Symbol) {
		return sellOrder(bar.Symbol, positions[bar.Symbol].Quantity())
	}
	return nil
}

package strategy

import (
	"fmt"

	"github.com/quantlane/tradesim/pkg/types"
)

// MovingAverageCrossover trades fast/slow SMA crossover events. A BUY
// fires the bar the fast average crosses above the slow one, a SELL the
// bar it crosses back below. The relative ordering on the very first
// comparable bar is recorded, not traded.
type MovingAverageCrossover struct {
	baseStrategy

	initialized bool
	fastAbove   bool
}

// NewMovingAverageCrossover creates the strategy with default periods.
func NewMovingAverageCrossover() *MovingAverageCrossover {
	s := &MovingAverageCrossover{}
	_ = s.Initialize(nil)
	return s
}

func (s *MovingAverageCrossover) Name() string { return "Moving Average Crossover" }

func (s *MovingAverageCrossover) Description() string {
	return "Buys when the fast moving average crosses above the slow one, sells on the cross back below"
}

func (s *MovingAverageCrossover) Initialize(params map[string]any) error {
	defaults := map[string]any{
		"fastPeriod": 10,
		"slowPeriod": 30,
	}
	if err := s.initParams(defaults, params); err != nil {
		return fmt.Errorf("ma_crossover: %w", err)
	}
	s.initialized = false
	s.fastAbove = false
	return nil
}

func (s *MovingAverageCrossover) MinBars() int { return s.intParam("slowPeriod") }

func (s *MovingAverageCrossover) Reset() {
	s.resetWindow()
	s.initialized = false
	s.fastAbove = false
}

func (s *MovingAverageCrossover) ValidParameters() bool {
	fast := s.intParam("fastPeriod")
	slow := s.intParam("slowPeriod")
	return s.numericParam("fastPeriod") && s.numericParam("slowPeriod") &&
		fast > 0 && slow > 0 && fast < slow
}

func (s *MovingAverageCrossover) Clone() Strategy {
	clone := &MovingAverageCrossover{}
	_ = clone.Initialize(s.cloneParams())
	return clone
}

func (s *MovingAverageCrossover) ProcessBar(bar types.MarketBar, positions map[string]*types.Position) *types.Order {
	slow := s.intParam("slowPeriod")
	s.pushPrice(bar.Close, slow)
	if len(s.prices) < slow {
		return nil
	}

	fast := s.intParam("fastPeriod")
	fastMA := sma(s.prices[len(s.prices)-fast:])
	slowMA := sma(s.prices)
	s.setState("fastMA", fastMA)
	s.setState("slowMA", slowMA)

	above := fastMA.GreaterThan(slowMA)
	if !s.initialized {
		s.initialized = true
		s.fastAbove = above
		return nil
	}
	if above == s.fastAbove {
		return nil
	}
	s.fastAbove = above

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

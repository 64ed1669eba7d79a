package strategy

import (
	"fmt"

	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RSI trades the Relative Strength Index computed from simple averages
// of gains and losses over the lookback period. Oversold readings
// trigger a BUY, overbought readings close an open position.
type RSI struct {
	baseStrategy
}

// NewRSI creates the strategy with default parameters.
func NewRSI() *RSI {
	s := &RSI{}
	_ = s.Initialize(nil)
	return s
}

func (s *RSI) Name() string { return "RSI" }

func (s *RSI) Description() string {
	return "Buys when RSI falls below the oversold level, sells an open position when it rises above the overbought level"
}

func (s *RSI) Initialize(params map[string]any) error {
	defaults := map[string]any{
		"period":              14,
		"overboughtThreshold": 70.0,
		"oversoldThreshold":   30.0,
	}
	if err := s.initParams(defaults, params); err != nil {
		return fmt.Errorf("rsi: %w", err)
	}
	return nil
}

// MinBars requires period price changes, hence period+1 bars.
func (s *RSI) MinBars() int { return s.intParam("period") + 1 }

func (s *RSI) Reset() { s.resetWindow() }

func (s *RSI) ValidParameters() bool {
	if !s.numericParam("period") || !s.numericParam("overboughtThreshold") || !s.numericParam("oversoldThreshold") {
		return false
	}
	overbought := s.decParam("overboughtThreshold")
	oversold := s.decParam("oversoldThreshold")
	return s.intParam("period") > 0 &&
		oversold.IsPositive() && overbought.LessThan(hundred) &&
		oversold.LessThan(overbought)
}

func (s *RSI) Clone() Strategy {
	clone := &RSI{}
	_ = clone.Initialize(s.cloneParams())
	return clone
}

func (s *RSI) ProcessBar(bar types.MarketBar, positions map[string]*types.Position) *types.Order {
	period := s.intParam("period")
	s.pushPrice(bar.Close, period+1)
	if len(s.prices) < period+1 {
		return nil
	}

	rsi := s.currentRSI(period)
	s.setState("rsi", rsi)

	// Threshold touches count: a reading exactly at a level fires.
	if rsi.GreaterThanOrEqual(s.decParam("overboughtThreshold")) && holding(positions, bar.Symbol) {
		return sellOrder(bar.Symbol, positions[bar.Symbol].Quantity())
	}
	if rsi.LessThanOrEqual(s.decParam("oversoldThreshold")) {
		return buyOrder(bar.Symbol)
	}
	return nil
}

func (s *RSI) currentRSI(period int) decimal.Decimal {
	gains := decimal.Zero
	losses := decimal.Zero
	for i := 1; i < len(s.prices); i++ {
		change := s.prices[i].Sub(s.prices[i-1])
		if change.IsPositive() {
			gains = gains.Add(change)
		} else {
			losses = losses.Add(change.Abs())
		}
	}
	n := decimal.NewFromInt(int64(period))
	avgGain := gains.Div(n)
	avgLoss := losses.Div(n)
	if avgLoss.IsZero() {
		return hundred
	}
	rs := avgGain.Div(avgLoss)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}

package strategy_test

import (
	"testing"

	"github.com/quantlane/tradesim/internal/strategy"
	"github.com/quantlane/tradesim/pkg/types"
)

func TestMeanReversionValidParameters(t *testing.T) {
	s := strategy.NewMeanReversion()
	if !s.ValidParameters() {
		t.Error("Defaults should be valid")
	}

	if err := s.Initialize(map[string]any{"period": 0, "threshold": 2.0}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if s.ValidParameters() {
		t.Error("Zero period should be invalid")
	}

	if err := s.Initialize(map[string]any{"period": 10, "threshold": -1.0}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if s.ValidParameters() {
		t.Error("Negative threshold should be invalid")
	}
}

// With a flat history the first deviation bar is judged against a zero
// standard deviation and produces nothing; the second deviation bar is
// judged against a window that now has spread, and exits the position.
func TestMeanReversionZScoreScenario(t *testing.T) {
	s := strategy.NewMeanReversion()
	if err := s.Initialize(map[string]any{"period": 5, "threshold": 1.5}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	series := bars("AAPL", 100, 100, 100, 100, 100, 110, 120, 130)
	positions := heldPositions("AAPL")

	for i := 0; i < 5; i++ {
		if order := s.ProcessBar(series[i], positions); order != nil {
			t.Fatalf("Unexpected signal at flat bar %d", i)
		}
	}
	if order := s.ProcessBar(series[5], positions); order != nil {
		t.Fatalf("Expected no signal on the first deviation bar, got %s", order.Side)
	}
	order := s.ProcessBar(series[6], positions)
	if order == nil || order.Side != types.OrderSideSell {
		t.Fatal("Expected a SELL on the second deviation bar")
	}
	if !order.Quantity.Equal(positions["AAPL"].Quantity()) {
		t.Errorf("SELL should liquidate the whole position, got quantity %s", order.Quantity)
	}
}

func TestMeanReversionBuysBelowThreshold(t *testing.T) {
	s := strategy.NewMeanReversion()
	if err := s.Initialize(map[string]any{"period": 5, "threshold": 1.5}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	series := bars("AAPL", 100, 100, 100, 100, 100, 90, 80)
	positions := noPositions()

	for i := 0; i < 6; i++ {
		if order := s.ProcessBar(series[i], positions); order != nil {
			t.Fatalf("Unexpected signal at bar %d", i)
		}
	}
	order := s.ProcessBar(series[6], positions)
	if order == nil || order.Side != types.OrderSideBuy {
		t.Fatal("Expected a BUY on the second downward deviation bar")
	}
}

// The SELL side requires an open position; the BUY side does not, so
// repeated deviations can scale into a position.
func TestMeanReversionSellRequiresPosition(t *testing.T) {
	s := strategy.NewMeanReversion()
	if err := s.Initialize(map[string]any{"period": 5, "threshold": 1.5}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	series := bars("AAPL", 100, 100, 100, 100, 100, 110, 120, 130)
	for i, bar := range series {
		if order := s.ProcessBar(bar, noPositions()); order != nil {
			t.Fatalf("Signal at bar %d with no position to exit", i)
		}
	}
}

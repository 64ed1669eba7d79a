package types_test

import (
	"testing"
	"time"

	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestPositionAddRecomputesAverage(t *testing.T) {
	pos := types.NewPosition("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	pos.Add(decimal.NewFromInt(10), decimal.NewFromInt(110), day(2))

	if !pos.Quantity().Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected quantity 20, got %s", pos.Quantity())
	}
	if !pos.AverageEntryPrice().Equal(decimal.NewFromInt(105)) {
		t.Errorf("Expected average entry 105, got %s", pos.AverageEntryPrice())
	}
}

func TestPositionReduceFIFO(t *testing.T) {
	pos := types.NewPosition("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	pos.Add(decimal.NewFromInt(10), decimal.NewFromInt(120), day(2))

	// Selling 15 at 130 closes the whole 100-lot and 5 of the 120-lot.
	realized := pos.Reduce(decimal.NewFromInt(15), decimal.NewFromInt(130))

	expected := decimal.NewFromInt(350) // 10*(130-100) + 5*(130-120)
	if !realized.Equal(expected) {
		t.Errorf("Expected realized PnL %s, got %s", expected, realized)
	}
	if !pos.Quantity().Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected remaining quantity 5, got %s", pos.Quantity())
	}
	if !pos.AverageEntryPrice().Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected remaining average entry 120, got %s", pos.AverageEntryPrice())
	}
	if !pos.RealizedPnL().Equal(expected) {
		t.Errorf("Expected cumulative realized PnL %s, got %s", expected, pos.RealizedPnL())
	}
}

func TestPositionReduceClampsToOpenQuantity(t *testing.T) {
	pos := types.NewPosition("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))

	realized := pos.Reduce(decimal.NewFromInt(25), decimal.NewFromInt(110))

	if !realized.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected realized PnL 100, got %s", realized)
	}
	if !pos.Quantity().IsZero() {
		t.Errorf("Expected flat position, got %s", pos.Quantity())
	}
	if !pos.AverageEntryPrice().IsZero() {
		t.Errorf("Expected zero average entry when flat, got %s", pos.AverageEntryPrice())
	}
}

func TestPositionMarkToMarket(t *testing.T) {
	pos := types.NewPosition("AAPL", decimal.NewFromInt(10), decimal.NewFromInt(100), day(1))
	pos.MarkPrice(decimal.NewFromInt(108))

	if !pos.MarketValue().Equal(decimal.NewFromInt(1080)) {
		t.Errorf("Expected market value 1080, got %s", pos.MarketValue())
	}
	if !pos.UnrealizedPnL().Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected unrealized PnL 80, got %s", pos.UnrealizedPnL())
	}
}

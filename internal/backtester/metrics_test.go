package backtester_test

import (
	"math"
	"testing"

	"github.com/quantlane/tradesim/internal/backtester"
	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
)

func resultWithEquity(values ...float64) *types.SimulationResult {
	curve := make([]decimal.Decimal, len(values))
	for i, v := range values {
		curve[i] = decimal.NewFromFloat(v)
	}
	return &types.SimulationResult{
		InitialCapital: decimal.NewFromInt(10000),
		EquityCurve:    curve,
	}
}

func orderWithPnL(pnl float64) types.Order {
	o := types.NewOrder("AAPL", types.OrderSideSell, decimal.NewFromInt(1))
	o.ProfitLoss = decimal.NewFromFloat(pnl)
	return *o
}

func TestSharpeRatioZeroCases(t *testing.T) {
	if m := backtester.ComputeMetrics(resultWithEquity(10000)); m.SharpeRatio != 0 {
		t.Errorf("Single-point curve should have Sharpe 0, got %f", m.SharpeRatio)
	}
	if m := backtester.ComputeMetrics(resultWithEquity(10000, 10000, 10000)); m.SharpeRatio != 0 {
		t.Errorf("Flat curve should have Sharpe 0, got %f", m.SharpeRatio)
	}
}

func TestSharpeRatioSignOnSteadyGains(t *testing.T) {
	m := backtester.ComputeMetrics(resultWithEquity(10000, 10100, 10300, 10600))
	if m.SharpeRatio <= 0 {
		t.Errorf("Steady gains should produce a positive Sharpe, got %f", m.SharpeRatio)
	}

	losing := backtester.ComputeMetrics(resultWithEquity(10000, 9900, 9700, 9400))
	if losing.SharpeRatio >= 0 {
		t.Errorf("Steady losses should produce a negative Sharpe, got %f", losing.SharpeRatio)
	}
}

func TestMaxDrawdown(t *testing.T) {
	m := backtester.ComputeMetrics(resultWithEquity(10000, 12000, 9000, 10000, 8000))
	expected := (12000.0 - 8000.0) / 12000.0
	if math.Abs(m.MaxDrawdown-expected) > 1e-9 {
		t.Errorf("Expected max drawdown %f, got %f", expected, m.MaxDrawdown)
	}

	rising := backtester.ComputeMetrics(resultWithEquity(10000, 10500, 11000))
	if rising.MaxDrawdown != 0 {
		t.Errorf("Monotonic curve should have zero drawdown, got %f", rising.MaxDrawdown)
	}
}

func TestProfitLossFraction(t *testing.T) {
	m := backtester.ComputeMetrics(resultWithEquity(10000, 9000, 8000))
	if math.Abs(m.ProfitLoss-(-0.2)) > 1e-9 {
		t.Errorf("Expected -0.2 total return, got %f", m.ProfitLoss)
	}
}

func TestProfitFactorAndWinRate(t *testing.T) {
	result := resultWithEquity(10000, 10500)
	result.ExecutedOrders = []types.Order{
		orderWithPnL(10),
		orderWithPnL(-5),
		orderWithPnL(20),
	}

	m := backtester.ComputeMetrics(result)
	if math.Abs(m.ProfitFactor-6.0) > 1e-9 {
		t.Errorf("Expected profit factor 6, got %f", m.ProfitFactor)
	}
	if math.Abs(m.WinRate-2.0/3.0) > 1e-9 {
		t.Errorf("Expected win rate 2/3, got %f", m.WinRate)
	}
	if m.TotalTrades != 3 {
		t.Errorf("Expected 3 trades, got %d", m.TotalTrades)
	}
}

func TestProfitFactorEdgeCases(t *testing.T) {
	noTrades := backtester.ComputeMetrics(resultWithEquity(10000, 10100))
	if noTrades.ProfitFactor != 0 {
		t.Errorf("No trades should give profit factor 0, got %f", noTrades.ProfitFactor)
	}
	if noTrades.WinRate != 0 {
		t.Errorf("No trades should give win rate 0, got %f", noTrades.WinRate)
	}

	result := resultWithEquity(10000, 10100)
	result.ExecutedOrders = []types.Order{orderWithPnL(10), orderWithPnL(15)}
	allWins := backtester.ComputeMetrics(result)
	if !math.IsInf(allWins.ProfitFactor, 1) {
		t.Errorf("No losing trades should give +Inf profit factor, got %f", allWins.ProfitFactor)
	}
	if allWins.WinRate != 1 {
		t.Errorf("Expected win rate 1, got %f", allWins.WinRate)
	}
}

// Package types provides shared type definitions for the trading simulator.
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderSide represents buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// MarketBar represents one day's OHLCV record for a symbol.
// Bars are created once during data loading and never mutated.
type MarketBar struct {
	Date   time.Time       `json:"date"`
	Symbol string          `json:"symbol"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// Order represents a trading order. A strategy emits at most one order
// per bar; the simulation engine fills it exactly once, populating the
// execution fields.
type Order struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Side           OrderSide       `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	ExecutionPrice decimal.Decimal `json:"executionPrice"`
	ExecutionDate  time.Time       `json:"executionDate"`
	ProfitLoss     decimal.Decimal `json:"profitLoss"`
	Executed       bool            `json:"executed"`
}

// NewOrder creates an unfilled order intent.
func NewOrder(symbol string, side OrderSide, quantity decimal.Decimal) *Order {
	return &Order{
		ID:       uuid.New().String(),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
	}
}

// Execute records the fill. Execution fields are set exactly once; a
// second call is ignored.
func (o *Order) Execute(date time.Time, price, profitLoss decimal.Decimal) {
	if o.Executed {
		return
	}
	o.ExecutionDate = date
	o.ExecutionPrice = price
	o.ProfitLoss = profitLoss
	o.Executed = true
}

// SimulationResult holds the output of one simulation run. It is
// immutable once produced.
type SimulationResult struct {
	ExecutedOrders []Order           `json:"executedOrders"`
	EquityCurve    []decimal.Decimal `json:"equityCurve"`
	Dates          []time.Time       `json:"dates"`
	InitialCapital decimal.Decimal   `json:"initialCapital"`
}

// FinalEquity returns the last equity point, or the initial capital when
// no bars were processed.
func (r *SimulationResult) FinalEquity() decimal.Decimal {
	if len(r.EquityCurve) == 0 {
		return r.InitialCapital
	}
	return r.EquityCurve[len(r.EquityCurve)-1]
}

// TotalReturn returns the fractional return over the run.
func (r *SimulationResult) TotalReturn() decimal.Decimal {
	if r.InitialCapital.IsZero() {
		return decimal.Zero
	}
	return r.FinalEquity().Sub(r.InitialCapital).Div(r.InitialCapital)
}

// OptimizationResult holds the metrics for one parameter combination.
type OptimizationResult struct {
	Parameters   map[string]any `json:"parameters"`
	SharpeRatio  float64        `json:"sharpeRatio"`
	ProfitLoss   float64        `json:"profitLoss"`
	MaxDrawdown  float64        `json:"maxDrawdown"`
	TotalTrades  int            `json:"totalTrades"`
	ProfitFactor float64        `json:"profitFactor"`
	WinRate      float64        `json:"winRate"`
}

// ParamKey returns the canonical "name=value;..." rendering of the
// parameter assignment, with names in sorted order. It is used both for
// report output and as a deterministic sort tie-break.
func (r OptimizationResult) ParamKey() string {
	names := make([]string, 0, len(r.Parameters))
	for name := range r.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", name, r.Parameters[name]))
	}
	return strings.Join(parts, ";")
}

func (r OptimizationResult) String() string {
	return fmt.Sprintf("%s sharpe=%.2f pl=%.2f%% maxDD=%.2f%% trades=%d pf=%.2f winRate=%.2f%%",
		r.ParamKey(), r.SharpeRatio, r.ProfitLoss*100, r.MaxDrawdown*100,
		r.TotalTrades, r.ProfitFactor, r.WinRate*100)
}

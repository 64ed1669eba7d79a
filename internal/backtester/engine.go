// Package backtester replays historical bars through a strategy and
// measures the resulting performance.
package backtester

import (
	"context"
	"fmt"

	"github.com/quantlane/tradesim/internal/data"
	"github.com/quantlane/tradesim/internal/strategy"
	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// minOrderNotional is the smallest cash amount a BUY may spend. Fills
// below it are discarded rather than executed.
var minOrderNotional = decimal.NewFromInt(10)

// Engine runs a single strategy over one symbol's bar history.
type Engine struct {
	logger *zap.Logger
	store  *data.Store
}

// NewEngine creates a simulation engine backed by the given store.
func NewEngine(logger *zap.Logger, store *data.Store) *Engine {
	return &Engine{
		logger: logger.Named("backtester"),
		store:  store,
	}
}

// Run replays the symbol's bars through the strategy and returns the
// executed orders plus the post-warm-up equity curve. The strategy's
// rolling state is reset before the replay; its configured parameters
// are kept. Cancelling ctx aborts the run with no partial result.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, symbol string, initialCapital decimal.Decimal) (*types.SimulationResult, error) {
	bars, err := e.store.Bars(symbol)
	if err != nil {
		return nil, err
	}
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("initial capital must be positive, got %s", initialCapital)
	}

	strat.Reset()
	minBars := strat.MinBars()

	result := &types.SimulationResult{
		InitialCapital: initialCapital,
	}
	cash := initialCapital
	positions := make(map[string]*types.Position)

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if pos, ok := positions[symbol]; ok {
			pos.MarkPrice(bar.Close)
		}

		order := strat.ProcessBar(bar, positions)

		// Bars inside the warm-up window only feed indicator state.
		if i < minBars {
			continue
		}

		if order != nil {
			switch order.Side {
			case types.OrderSideBuy:
				cash = e.fillBuy(order, bar, cash, positions)
			case types.OrderSideSell:
				cash = e.fillSell(order, bar, cash, positions)
			}
			if order.Executed {
				result.ExecutedOrders = append(result.ExecutedOrders, *order)
			}
		}

		equity := cash
		if pos, ok := positions[symbol]; ok {
			equity = equity.Add(pos.MarketValue())
		}
		result.EquityCurve = append(result.EquityCurve, equity)
		result.Dates = append(result.Dates, bar.Date)
	}

	e.logger.Debug("simulation complete",
		zap.String("symbol", symbol),
		zap.String("strategy", strat.Name()),
		zap.Int("bars", len(bars)),
		zap.Int("orders", len(result.ExecutedOrders)),
		zap.String("final_equity", result.FinalEquity().StringFixed(2)))

	return result, nil
}

// fillBuy spends all available cash at the bar's close. Orders below
// the minimum notional are discarded.
func (e *Engine) fillBuy(order *types.Order, bar types.MarketBar, cash decimal.Decimal, positions map[string]*types.Position) decimal.Decimal {
	if cash.LessThan(minOrderNotional) || !bar.Close.IsPositive() {
		return cash
	}
	quantity := cash.Div(bar.Close)
	order.Quantity = quantity
	order.Execute(bar.Date, bar.Close, decimal.Zero)

	if pos, ok := positions[order.Symbol]; ok {
		pos.Add(quantity, bar.Close, bar.Date)
	} else {
		positions[order.Symbol] = types.NewPosition(order.Symbol, quantity, bar.Close, bar.Date)
	}

	e.logger.Debug("buy filled",
		zap.String("symbol", order.Symbol),
		zap.Time("date", bar.Date),
		zap.String("price", bar.Close.StringFixed(2)),
		zap.String("quantity", quantity.StringFixed(4)))

	return decimal.Zero
}

// fillSell liquidates the entire open position at the bar's close.
func (e *Engine) fillSell(order *types.Order, bar types.MarketBar, cash decimal.Decimal, positions map[string]*types.Position) decimal.Decimal {
	pos, ok := positions[order.Symbol]
	if !ok || !pos.Quantity().IsPositive() {
		return cash
	}
	quantity := pos.Quantity()
	realized := pos.Reduce(quantity, bar.Close)
	order.Quantity = quantity
	order.Execute(bar.Date, bar.Close, realized)
	delete(positions, order.Symbol)

	e.logger.Debug("sell filled",
		zap.String("symbol", order.Symbol),
		zap.Time("date", bar.Date),
		zap.String("price", bar.Close.StringFixed(2)),
		zap.String("quantity", quantity.StringFixed(4)),
		zap.String("pnl", realized.StringFixed(2)))

	return cash.Add(quantity.Mul(bar.Close))
}

// Package strategy provides trading strategy implementations.
//
// Strategies are stateful, streaming signal generators: they consume one
// bar at a time plus the current positions and emit at most one order
// intent per bar. A strategy never errors on insufficient history; it
// returns nil until its rolling window is full.
package strategy

import (
	"fmt"
	"sort"

	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Strategy is the interface all strategies must implement.
type Strategy interface {
	Name() string
	Description() string

	// Initialize merges the supplied parameters over the strategy's
	// defaults and clears all rolling state. It is idempotent and may be
	// called repeatedly, e.g. during a grid search. A non-numeric
	// parameter value is a configuration error.
	Initialize(params map[string]any) error

	// ProcessBar appends the bar's close to the rolling window, updates
	// indicator state, and returns an order intent or nil. Bars must be
	// fed in ascending date order for a single symbol.
	ProcessBar(bar types.MarketBar, positions map[string]*types.Position) *types.Order

	// MinBars returns the minimum number of bars required before the
	// strategy can produce a signal.
	MinBars() int

	// Reset clears rolling windows and indicator state while preserving
	// the configured parameters.
	Reset()

	// ValidParameters reports whether the current parameter set is
	// usable. The optimizer skips combinations that fail this check.
	ValidParameters() bool

	// Clone returns a fresh, independently-stateful instance configured
	// with the same parameters. Concurrent evaluations must each run on
	// their own clone.
	Clone() Strategy

	// State exposes a read-only snapshot of parameters and indicator
	// values for diagnostics and tests.
	State() map[string]any
}

// baseStrategy carries the shared parameter map, diagnostic state and
// rolling price window.
type baseStrategy struct {
	params map[string]any
	state  map[string]any
	prices []decimal.Decimal
}

// initParams merges supplied over defaults without mutating the caller's
// map and rejects non-numeric values.
func (b *baseStrategy) initParams(defaults, supplied map[string]any) error {
	merged := make(map[string]any, len(defaults)+len(supplied))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range supplied {
		merged[k] = v
	}
	for k, v := range merged {
		if _, err := cast.ToFloat64E(v); err != nil {
			return fmt.Errorf("parameter %q must be numeric: %w", k, err)
		}
	}
	b.params = merged
	b.state = make(map[string]any)
	b.prices = nil
	return nil
}

func (b *baseStrategy) resetWindow() {
	b.prices = nil
	b.state = make(map[string]any)
}

// pushPrice appends a close and trims the window to max entries.
func (b *baseStrategy) pushPrice(price decimal.Decimal, max int) {
	b.prices = append(b.prices, price)
	if len(b.prices) > max {
		b.prices = b.prices[len(b.prices)-max:]
	}
}

func (b *baseStrategy) intParam(name string) int {
	return cast.ToInt(b.params[name])
}

func (b *baseStrategy) decParam(name string) decimal.Decimal {
	return decimal.NewFromFloat(cast.ToFloat64(b.params[name]))
}

// numericParam reports whether a parameter is present and numeric.
func (b *baseStrategy) numericParam(name string) bool {
	v, ok := b.params[name]
	if !ok {
		return false
	}
	_, err := cast.ToFloat64E(v)
	return err == nil
}

func (b *baseStrategy) setState(key string, value any) {
	b.state[key] = value
}

// State returns a copy of the parameters and indicator state.
func (b *baseStrategy) State() map[string]any {
	out := make(map[string]any, len(b.params)+len(b.state))
	for k, v := range b.params {
		out[k] = v
	}
	for k, v := range b.state {
		out[k] = v
	}
	return out
}

func (b *baseStrategy) cloneParams() map[string]any {
	out := make(map[string]any, len(b.params))
	for k, v := range b.params {
		out[k] = v
	}
	return out
}

// holding reports whether a positive-quantity position exists for symbol.
func holding(positions map[string]*types.Position, symbol string) bool {
	pos, ok := positions[symbol]
	return ok && pos != nil && pos.Quantity().IsPositive()
}

// buyOrder creates a BUY intent; the engine sizes it at fill time.
func buyOrder(symbol string) *types.Order {
	return types.NewOrder(symbol, types.OrderSideBuy, decimal.NewFromInt(1))
}

func sellOrder(symbol string, quantity decimal.Decimal) *types.Order {
	return types.NewOrder(symbol, types.OrderSideSell, quantity)
}

// sma returns the arithmetic mean of prices.
func sma(prices []decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	return sum.Div(decimal.NewFromInt(int64(len(prices))))
}

// popStdDev returns the population standard deviation (divide by N).
func popStdDev(prices []decimal.Decimal, mean decimal.Decimal) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sumSq := decimal.Zero
	for _, p := range prices {
		diff := p.Sub(mean)
		sumSq = sumSq.Add(diff.Mul(diff))
	}
	return sqrtDecimal(sumSq.Div(decimal.NewFromInt(int64(len(prices)))))
}

// sqrtDecimal approximates a square root with Newton's method.
func sqrtDecimal(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() || d.IsNegative() {
		return decimal.Zero
	}
	x := d
	for i := 0; i < 20; i++ {
		x = x.Add(d.Div(x)).Div(decimal.NewFromInt(2))
	}
	return x
}

// Registry manages available strategies by name.
type Registry struct {
	factories map[string]func() Strategy
}

// NewRegistry creates a registry with the built-in strategies registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]func() Strategy)}
	r.Register("ma_crossover", func() Strategy { return NewMovingAverageCrossover() })
	r.Register("mean_reversion", func() Strategy { return NewMeanReversion() })
	r.Register("rsi", func() Strategy { return NewRSI() })
	r.Register("bollinger", func() Strategy { return NewBollingerBands() })
	r.Register("sma", func() Strategy { return NewSimpleMovingAverage() })
	return r
}

// Register registers a strategy factory.
func (r *Registry) Register(name string, factory func() Strategy) {
	r.factories[name] = factory
}

// Create creates a new strategy instance by name.
func (r *Registry) Create(name string) (Strategy, bool) {
	factory, ok := r.factories[name]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// List returns the registered strategy names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

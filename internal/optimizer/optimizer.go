// Package optimizer grid-searches strategy parameters over historical
// data and ranks the outcomes by risk-adjusted return.
package optimizer

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/quantlane/tradesim/internal/backtester"
	"github.com/quantlane/tradesim/internal/strategy"
	"github.com/quantlane/tradesim/internal/workers"
	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole sweep. Combinations still outstanding
// at the deadline are cancelled and contribute no result.
const DefaultTimeout = 5 * time.Minute

// Optimizer evaluates every combination of its registered parameter
// ranges against one symbol's history.
type Optimizer struct {
	logger         *zap.Logger
	engine         *backtester.Engine
	symbol         string
	initialCapital decimal.Decimal
	timeout        time.Duration
	numWorkers     int

	ranges map[string][]any
}

// New creates an optimizer bound to a symbol and starting capital.
func New(logger *zap.Logger, engine *backtester.Engine, symbol string, initialCapital decimal.Decimal) *Optimizer {
	return &Optimizer{
		logger:         logger.Named("optimizer"),
		engine:         engine,
		symbol:         symbol,
		initialCapital: initialCapital,
		timeout:        DefaultTimeout,
		numWorkers:     runtime.NumCPU(),
		ranges:         make(map[string][]any),
	}
}

// SetTimeout overrides the sweep deadline.
func (o *Optimizer) SetTimeout(d time.Duration) {
	o.timeout = d
}

// SetWorkers overrides the evaluation parallelism. Values below one keep
// the CPU-count default.
func (o *Optimizer) SetWorkers(n int) {
	if n > 0 {
		o.numWorkers = n
	}
}

// AddParameterRange registers candidate values for a named parameter.
// Re-adding a name replaces its range.
func (o *Optimizer) AddParameterRange(name string, values []any) {
	copied := make([]any, len(values))
	copy(copied, values)
	o.ranges[name] = copied
}

// Reset clears all registered ranges. Required before reusing the
// optimizer for a strategy with different parameter names.
func (o *Optimizer) Reset() {
	o.ranges = make(map[string][]any)
}

// Optimize runs one simulation per valid parameter combination and
// returns the results sorted by Sharpe ratio, best first. Invalid
// combinations are skipped before any work is scheduled; a combination
// whose evaluation fails is logged and excluded. With no registered
// ranges the result is empty.
func (o *Optimizer) Optimize(ctx context.Context, strat strategy.Strategy) []types.OptimizationResult {
	combos := o.combinations()
	if len(combos) == 0 {
		return nil
	}

	valid := combos[:0]
	for _, combo := range combos {
		probe := strat.Clone()
		if err := probe.Initialize(combo); err != nil {
			o.logger.Warn("skipping combination", zap.Any("params", combo), zap.Error(err))
			continue
		}
		if !probe.ValidParameters() {
			continue
		}
		valid = append(valid, combo)
	}
	if len(valid) == 0 {
		return nil
	}

	o.logger.Info("starting parameter sweep",
		zap.String("symbol", o.symbol),
		zap.String("strategy", strat.Name()),
		zap.Int("combinations", len(valid)))

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	pool := workers.NewPool(o.logger, workers.Config{
		Name:       "optimizer",
		NumWorkers: o.numWorkers,
		QueueSize:  len(valid),
	})
	pool.Start()

	var (
		mu      sync.Mutex
		results []types.OptimizationResult
		wg      sync.WaitGroup
	)
	for _, combo := range valid {
		combo := combo
		wg.Add(1)
		err := pool.SubmitFunc(func() error {
			defer wg.Done()
			res, err := o.evaluate(ctx, strat, combo)
			if err != nil {
				return err
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
		if err != nil {
			wg.Done()
			o.logger.Warn("submit failed", zap.Any("params", combo), zap.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.logger.Warn("sweep deadline reached, cancelling outstanding tasks",
			zap.Duration("timeout", o.timeout))
	}
	cancel()
	pool.Stop()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SharpeRatio != results[j].SharpeRatio {
			return results[i].SharpeRatio > results[j].SharpeRatio
		}
		return results[i].ParamKey() < results[j].ParamKey()
	})
	return results
}

// evaluate runs one combination on an isolated strategy clone.
func (o *Optimizer) evaluate(ctx context.Context, strat strategy.Strategy, params map[string]any) (types.OptimizationResult, error) {
	if err := ctx.Err(); err != nil {
		return types.OptimizationResult{}, err
	}

	clone := strat.Clone()
	if err := clone.Initialize(params); err != nil {
		return types.OptimizationResult{}, err
	}

	sim, err := o.engine.Run(ctx, clone, o.symbol, o.initialCapital)
	if err != nil {
		o.logger.Warn("evaluation failed", zap.Any("params", params), zap.Error(err))
		return types.OptimizationResult{}, err
	}

	m := backtester.ComputeMetrics(sim)
	return types.OptimizationResult{
		Parameters:   params,
		SharpeRatio:  m.SharpeRatio,
		ProfitLoss:   m.ProfitLoss,
		MaxDrawdown:  m.MaxDrawdown,
		TotalTrades:  m.TotalTrades,
		ProfitFactor: m.ProfitFactor,
		WinRate:      m.WinRate,
	}, nil
}

// combinations expands the registered ranges into their full Cartesian
// product. Parameter names are walked in sorted order so the expansion
// is deterministic.
func (o *Optimizer) combinations() []map[string]any {
	if len(o.ranges) == 0 {
		return nil
	}
	names := make([]string, 0, len(o.ranges))
	for name := range o.ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []map[string]any
	current := make(map[string]any, len(names))
	var recurse func(depth int)
	recurse = func(depth int) {
		if depth == len(names) {
			combo := make(map[string]any, len(current))
			for k, v := range current {
				combo[k] = v
			}
			out = append(out, combo)
			return
		}
		name := names[depth]
		for _, v := range o.ranges[name] {
			current[name] = v
			recurse(depth + 1)
		}
		delete(current, name)
	}
	recurse(0)
	return out
}

// Package main provides the tradesim command line tool. It replays
// historical daily bars through a trading strategy, either as a single
// simulation run or as a parallel parameter sweep.
package main

import (
	"context"
	"flag"
	"os/signal"
	"strings"
	"syscall"

	"github.com/quantlane/tradesim/internal/backtester"
	"github.com/quantlane/tradesim/internal/data"
	"github.com/quantlane/tradesim/internal/optimizer"
	"github.com/quantlane/tradesim/internal/report"
	"github.com/quantlane/tradesim/internal/strategy"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (optional)")
	dataDir := flag.String("data", "", "Directory of per-symbol CSV bar files (overrides config)")
	symbol := flag.String("symbol", "", "Symbol to simulate (overrides config)")
	strategyName := flag.String("strategy", "", "Strategy name (overrides config)")
	mode := flag.String("mode", "", "run or sweep (overrides config)")
	output := flag.String("out", "", "Output CSV path (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	overrideString(cfg, "data_dir", *dataDir)
	overrideString(cfg, "symbol", *symbol)
	overrideString(cfg, "strategy", *strategyName)
	overrideString(cfg, "mode", *mode)
	overrideString(cfg, "output", *output)
	overrideString(cfg, "log_level", *logLevel)

	logger := setupLogger(cfg.GetString("log_level"))
	defer logger.Sync()

	logger.Info("starting tradesim",
		zap.String("data_dir", cfg.GetString("data_dir")),
		zap.String("symbol", cfg.GetString("symbol")),
		zap.String("strategy", cfg.GetString("strategy")),
		zap.String("mode", cfg.GetString("mode")),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := data.NewStore(logger)
	if err := store.LoadDir(cfg.GetString("data_dir")); err != nil {
		logger.Fatal("failed to load market data", zap.Error(err))
	}
	logger.Info("market data loaded", zap.Strings("symbols", store.Symbols()))

	registry := strategy.NewRegistry()
	strat, ok := registry.Create(cfg.GetString("strategy"))
	if !ok {
		logger.Fatal("unknown strategy",
			zap.String("strategy", cfg.GetString("strategy")),
			zap.Strings("available", registry.List()),
		)
	}
	if err := strat.Initialize(cfg.GetStringMap("params")); err != nil {
		logger.Fatal("invalid strategy parameters", zap.Error(err))
	}
	if !strat.ValidParameters() {
		logger.Fatal("strategy parameters failed validation",
			zap.Any("params", cfg.GetStringMap("params")))
	}

	engine := backtester.NewEngine(logger, store)
	writer := report.NewWriter(logger)
	capital := decimal.NewFromFloat(cfg.GetFloat64("initial_capital"))

	switch cfg.GetString("mode") {
	case "run":
		runSimulation(ctx, logger, engine, writer, strat, cfg, capital)
	case "sweep":
		runSweep(ctx, logger, engine, writer, strat, cfg, capital)
	default:
		logger.Fatal("mode must be run or sweep", zap.String("mode", cfg.GetString("mode")))
	}
}

func runSimulation(ctx context.Context, logger *zap.Logger, engine *backtester.Engine, writer *report.Writer, strat strategy.Strategy, cfg *viper.Viper, capital decimal.Decimal) {
	symbol := cfg.GetString("symbol")
	result, err := engine.Run(ctx, strat, symbol, capital)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	m := backtester.ComputeMetrics(result)
	logger.Info("simulation finished",
		zap.String("symbol", symbol),
		zap.String("strategy", strat.Name()),
		zap.Int("trades", m.TotalTrades),
		zap.String("final_equity", result.FinalEquity().StringFixed(2)),
		zap.Float64("total_return", m.ProfitLoss),
		zap.Float64("sharpe", m.SharpeRatio),
		zap.Float64("max_drawdown", m.MaxDrawdown),
		zap.Float64("win_rate", m.WinRate),
	)

	if path := cfg.GetString("output"); path != "" {
		if err := writer.WriteSimulation(path, result); err != nil {
			logger.Fatal("failed to write report", zap.Error(err))
		}
	}
}

func runSweep(ctx context.Context, logger *zap.Logger, engine *backtester.Engine, writer *report.Writer, strat strategy.Strategy, cfg *viper.Viper, capital decimal.Decimal) {
	symbol := cfg.GetString("symbol")
	opt := optimizer.New(logger, engine, symbol, capital)
	if cfg.IsSet("sweep.timeout") {
		opt.SetTimeout(cfg.GetDuration("sweep.timeout"))
	}
	if cfg.IsSet("sweep.workers") {
		opt.SetWorkers(cfg.GetInt("sweep.workers"))
	}

	ranges := cfg.GetStringMap("sweep.ranges")
	if len(ranges) == 0 {
		logger.Fatal("sweep mode requires sweep.ranges in the config")
	}
	for name, raw := range ranges {
		values, err := cast.ToSliceE(raw)
		if err != nil {
			logger.Fatal("parameter range must be a list",
				zap.String("parameter", name), zap.Error(err))
		}
		opt.AddParameterRange(name, values)
	}

	results := opt.Optimize(ctx, strat)
	if len(results) == 0 {
		logger.Warn("sweep produced no results")
		return
	}

	best := results[0]
	logger.Info("sweep finished",
		zap.Int("results", len(results)),
		zap.String("best_params", best.ParamKey()),
		zap.Float64("best_sharpe", best.SharpeRatio),
		zap.Float64("best_return", best.ProfitLoss),
	)

	if path := cfg.GetString("output"); path != "" {
		rows := []report.SweepRow{{Symbol: symbol, Result: best}}
		if err := writer.WriteSweep(path, rows); err != nil {
			logger.Fatal("failed to write report", zap.Error(err))
		}
	}
}

// loadConfig builds the effective configuration from defaults, an
// optional config file and TRADESIM_* environment variables.
func loadConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("data_dir", "./data")
	v.SetDefault("symbol", "AAPL")
	v.SetDefault("strategy", "ma_crossover")
	v.SetDefault("mode", "run")
	v.SetDefault("initial_capital", 10000.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "")

	v.SetEnvPrefix("TRADESIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func overrideString(v *viper.Viper, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Encoding:    "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// Package report exports simulation and sweep results as CSV files.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/quantlane/tradesim/pkg/types"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Writer renders results to CSV files.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a report writer.
func NewWriter(logger *zap.Logger) *Writer {
	return &Writer{logger: logger.Named("report")}
}

// WriteSimulation writes one row per executed order. The Equity column
// holds the equity-curve value on the order's execution date.
func (w *Writer) WriteSimulation(path string, result *types.SimulationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	equityByDate := make(map[string]string, len(result.EquityCurve))
	for i, date := range result.Dates {
		if i < len(result.EquityCurve) {
			equityByDate[date.Format(dateLayout)] = result.EquityCurve[i].StringFixed(2)
		}
	}

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"Date", "Side", "Price", "ProfitLoss", "Equity"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, order := range result.ExecutedOrders {
		date := order.ExecutionDate.Format(dateLayout)
		row := []string{
			date,
			string(order.Side),
			order.ExecutionPrice.StringFixed(2),
			order.ProfitLoss.StringFixed(2),
			equityByDate[date],
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	w.logger.Info("simulation report written",
		zap.String("path", path),
		zap.Int("orders", len(result.ExecutedOrders)))
	return nil
}

// SweepRow pairs a symbol with the top-ranked result of one sweep.
type SweepRow struct {
	Symbol string
	Result types.OptimizationResult
}

// WriteSweep writes one row per sweep: the best parameter combination
// found for each symbol. Rows are expected pre-ranked by the optimizer.
func (w *Writer) WriteSweep(path string, rows []SweepRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	header := []string{"Symbol", "Parameters", "Sharpe Ratio", "Max Drawdown", "Win Rate", "Total Trades", "Profit/Loss"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		r := row.Result
		record := []string{
			row.Symbol,
			r.ParamKey(),
			strconv.FormatFloat(r.SharpeRatio, 'f', 4, 64),
			strconv.FormatFloat(r.MaxDrawdown, 'f', 4, 64),
			strconv.FormatFloat(r.WinRate, 'f', 4, 64),
			strconv.Itoa(r.TotalTrades),
			strconv.FormatFloat(r.ProfitLoss, 'f', 4, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}

	w.logger.Info("sweep report written",
		zap.String("path", path),
		zap.Int("rows", len(rows)))
	return nil
}

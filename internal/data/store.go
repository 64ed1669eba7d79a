// Package data provides market data storage and loading.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quantlane/tradesim/pkg/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrSymbolNotFound is returned when no market data exists for a symbol.
var ErrSymbolNotFound = errors.New("no market data for symbol")

const dateLayout = "2006-01-02"

// Store holds daily bar histories keyed by symbol. Once loaded the data
// is read-only and safe to share across concurrent simulations.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger
	bars   map[string][]types.MarketBar
}

// NewStore creates an empty store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		bars:   make(map[string][]types.MarketBar),
	}
}

// LoadDir loads every CSV file in dir. The symbol is derived from the
// file name ("AAPL.csv" or "AAPL_data.csv" both map to AAPL). Files that
// fail to parse are logged and skipped.
func (s *Store) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read market data directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		symbol := strings.TrimSuffix(entry.Name(), ".csv")
		symbol = strings.TrimSuffix(symbol, "_data")

		bars, err := s.loadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping market data file",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		s.Add(symbol, bars)
		loaded++
	}

	s.logger.Info("market data loaded",
		zap.String("dir", dir),
		zap.Int("symbols", loaded),
	)
	return nil
}

// Add registers a bar history for a symbol, replacing any existing one.
// Bars are sorted by ascending date; duplicate dates are tolerated.
func (s *Store) Add(symbol string, bars []types.MarketBar) {
	sorted := make([]types.MarketBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol] = sorted
}

// Bars returns the ascending-date bar history for a symbol.
func (s *Store) Bars(symbol string) ([]types.MarketBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars, ok := s.bars[symbol]
	if !ok || len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return bars, nil
}

// Symbols returns all loaded symbols in sorted order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.bars))
	for symbol := range s.bars {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// loadFile parses one CSV file of daily bars with the header
// Date,Symbol,Open,High,Low,Close,Volume. Malformed rows are logged and
// skipped rather than failing the whole file.
func (s *Store) loadFile(path string) ([]types.MarketBar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 7

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, errors.New("no data rows")
	}

	bars := make([]types.MarketBar, 0, len(records)-1)
	for i, record := range records[1:] {
		bar, err := parseBar(record)
		if err != nil {
			s.logger.Warn("skipping malformed bar",
				zap.String("file", filepath.Base(path)),
				zap.Int("row", i+2),
				zap.Error(err),
			)
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBar(record []string) (types.MarketBar, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
	if err != nil {
		return types.MarketBar{}, fmt.Errorf("date: %w", err)
	}

	fields := make([]decimal.Decimal, 5)
	for i, name := range []string{"open", "high", "low", "close", "volume"} {
		fields[i], err = decimal.NewFromString(strings.TrimSpace(record[i+2]))
		if err != nil {
			return types.MarketBar{}, fmt.Errorf("%s: %w", name, err)
		}
	}

	return types.MarketBar{
		Date:   date,
		Symbol: strings.TrimSpace(record[1]),
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

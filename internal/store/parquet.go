package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"backlab/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore using Parquet files on disk, one file per
// symbol per year:
//
//	<DataDir>/daily/<SYMBOL>/<YYYY>.parquet
//
// Writes to the same symbol are serialized by a per-symbol mutex so
// concurrent ingestion cannot interleave merges; writes to different
// symbols proceed in parallel. Readers never take the lock: files are
// replaced atomically via rename, so a read sees either the old or the new
// file, both internally consistent.
type ParquetStore struct {
	DataDir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{
		DataDir: dataDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// BarRecord is the on-disk Parquet schema for daily bars.
type BarRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// symbolLock returns the mutex guarding writes for one symbol.
func (s *ParquetStore) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.locks[symbol] = l
	}
	return l
}

// WriteBars merges bars into the per-symbol year files. The returned count
// is the number of timestamps that were not already present; rewriting an
// existing timestamp (last write wins) does not count as a new row.
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	// Group incoming bars by symbol, then by year within the symbol, so
	// the symbol lock covers every file the batch touches.
	bySymbol := make(map[string]map[int][]BarRecord)
	for _, b := range bars {
		sym := strings.ToUpper(b.Symbol)
		if bySymbol[sym] == nil {
			bySymbol[sym] = make(map[int][]BarRecord)
		}
		year := b.Timestamp.UTC().Year()
		bySymbol[sym][year] = append(bySymbol[sym][year], BarRecord{
			Symbol:    sym,
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}

	written := 0
	for sym, years := range bySymbol {
		lock := s.symbolLock(sym)
		lock.Lock()
		for year, records := range years {
			path := s.barPath(sym, year)

			existing, _ := readParquetFile[BarRecord](path)
			merged, added := mergeBarRecords(existing, records)

			if err := writeParquetFile(path, merged); err != nil {
				lock.Unlock()
				return written, fmt.Errorf("writing bars for %s/%d: %w", sym, year, err)
			}
			written += added
		}
		lock.Unlock()
	}
	return written, nil
}

// ReadBars reads the symbol's bars within [start, end] inclusive. Zero
// bounds are open-ended.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	sym := strings.ToUpper(symbol)
	dir := filepath.Join(s.DataDir, "daily", sym)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NotFoundf("symbol %s has no stored bars", sym)
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var bars []domain.Bar
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".parquet") {
			continue
		}
		records, err := readParquetFile[BarRecord](filepath.Join(dir, e.Name()))
		if err != nil {
			// A year file that cannot be read means a silently truncated
			// series, so fail the read rather than skip it.
			return nil, domain.Internalf(err, "reading bars for %s from %s", sym, e.Name())
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if !start.IsZero() && ts.Before(start) {
				continue
			}
			if !end.IsZero() && ts.After(end) {
				continue
			}
			bars = append(bars, domain.Bar{
				Symbol:    r.Symbol,
				Timestamp: ts,
				Open:      r.Open,
				High:      r.High,
				Low:       r.Low,
				Close:     r.Close,
				Volume:    r.Volume,
			})
		}
	}
	if len(bars) == 0 && len(entries) == 0 {
		return nil, domain.NotFoundf("symbol %s has no stored bars", sym)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	return bars, nil
}

// ListSymbols lists all symbols with at least one bar file.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "daily")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// barPath returns the filesystem path for one symbol-year file.
func (s *ParquetStore) barPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, "daily", symbol, fmt.Sprintf("%d.parquet", year))
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := parquet.WriteFile(tmp, records); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates by timestamp, preferring incoming records
// over existing ones, and reports how many timestamps are new. Results are
// sorted ascending.
func mergeBarRecords(existing, incoming []BarRecord) ([]BarRecord, int) {
	seen := make(map[int64]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	added := 0
	for _, r := range incoming {
		if _, dup := seen[r.Timestamp]; !dup {
			added++
		}
		seen[r.Timestamp] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged, added
}

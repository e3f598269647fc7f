package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"backlab/internal/domain"
)

var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore on a local SQLite database. Structured
// fields (symbols, report, trades, equity history) are stored as JSON text
// columns; the listing columns are denormalized so ListRuns never parses
// JSON.
type SQLiteStore struct {
	db *sql.DB
}

const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at   TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	symbols      TEXT NOT NULL,
	start_cash   REAL NOT NULL,
	total_return REAL NOT NULL,
	num_trades   INTEGER NOT NULL,
	report       TEXT NOT NULL,
	trades       TEXT NOT NULL,
	history      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at DESC);
`

// NewSQLiteStore opens (creating if needed) the run database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run database: %w", err)
	}
	// modernc.org/sqlite serializes access per connection; a single
	// connection avoids SQLITE_BUSY on concurrent writes.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing run schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	symbols, err := json.Marshal(run.Symbols)
	if err != nil {
		return fmt.Errorf("encoding symbols: %w", err)
	}
	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	trades, err := json.Marshal(run.Trades)
	if err != nil {
		return fmt.Errorf("encoding trades: %w", err)
	}
	history, err := json.Marshal(run.History)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (created_at, strategy, symbols, start_cash, total_return, num_trades, report, trades, history)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.Format(time.RFC3339Nano),
		run.Strategy,
		string(symbols),
		run.StartCash,
		run.Report["total_return"],
		int(run.Report["num_trades"]),
		string(report),
		string(trades),
		string(history),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}
	run.ID = id
	run.CreatedAt = createdAt
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, strategy, symbols, start_cash, report, trades, history
		FROM runs WHERE id = ?`, id)

	var (
		run       Run
		createdAt string
		symbols   string
		report    string
		trades    string
		history   string
	)
	err := row.Scan(&run.ID, &createdAt, &run.Strategy, &symbols, &run.StartCash, &report, &trades, &history)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %d: %w", id, err)
	}

	run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing run %d created_at: %w", id, err)
	}
	if err := json.Unmarshal([]byte(symbols), &run.Symbols); err != nil {
		return nil, fmt.Errorf("decoding run %d symbols: %w", id, err)
	}
	if err := json.Unmarshal([]byte(report), &run.Report); err != nil {
		return nil, fmt.Errorf("decoding run %d report: %w", id, err)
	}
	if err := json.Unmarshal([]byte(trades), &run.Trades); err != nil {
		return nil, fmt.Errorf("decoding run %d trades: %w", id, err)
	}
	if err := json.Unmarshal([]byte(history), &run.History); err != nil {
		return nil, fmt.Errorf("decoding run %d history: %w", id, err)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, strategy, symbols, start_cash, total_return, num_trades
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			sum       RunSummary
			createdAt string
			symbols   string
		)
		if err := rows.Scan(&sum.ID, &createdAt, &sum.Strategy, &symbols, &sum.StartCash, &sum.TotalReturn, &sum.NumTrades); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		if sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at for run %d: %w", sum.ID, err)
		}
		if err := json.Unmarshal([]byte(symbols), &sum.Symbols); err != nil {
			return nil, fmt.Errorf("decoding symbols for run %d: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return out, nil
}

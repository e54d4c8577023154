package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"perpPatternBot/internal/domain"
	"perpPatternBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.CandleRepository using SQLite. The candle
// archive feeds the fetch and backtest tooling and records the periods
// the live engine traded.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/pattern_bot.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver benefits from
	// a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS candles (
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		open_time TIMESTAMP NOT NULL,
		close_time TIMESTAMP NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		PRIMARY KEY (symbol, interval, open_time)
	);

	CREATE INDEX IF NOT EXISTS idx_candles_symbol_interval ON candles (symbol, interval, open_time);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- CandleRepository Implementation ---

// SaveCandles persists a batch of candles inside one transaction, ignoring
// duplicates. Returns the number of newly inserted rows.
func (r *Repository) SaveCandles(ctx context.Context, candles []*domain.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin candle insert transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
	INSERT OR IGNORE INTO candles (symbol, interval, open_time, close_time, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare candle insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range candles {
		result, err := stmt.ExecContext(ctx,
			c.Symbol, c.Interval, c.OpenTime, c.CloseTime, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return 0, fmt.Errorf("failed to insert candle for %s at %s: %w", c.Symbol, c.OpenTime, err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected for candle insert: %w", err)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit candle inserts: %w", err)
	}
	r.logger.Debug(ctx, "Candles saved", map[string]interface{}{"received": len(candles), "inserted": inserted})
	return inserted, nil
}

// FindCandles retrieves archived candles for a symbol and interval within a
// time range, ordered by open time ascending.
func (r *Repository) FindCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Candle, error) {
	const query = `
	SELECT symbol, interval, open_time, close_time, open, high, low, close, volume
	FROM candles
	WHERE symbol = ? AND interval = ? AND open_time >= ? AND open_time <= ?
	ORDER BY open_time ASC`

	rows, err := r.db.QueryContext(ctx, query, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for %s %s: %w", symbol, interval, err)
	}
	defer rows.Close()

	candles := make([]*domain.Candle, 0)
	for rows.Next() {
		c := &domain.Candle{IsFinal: true}
		if err := rows.Scan(&c.Symbol, &c.Interval, &c.OpenTime, &c.CloseTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle row: %w", err)
		}
		candles = append(candles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candle rows: %w", err)
	}
	return candles, nil
}

// CountCandles returns the number of archived candles for a symbol and interval.
func (r *Repository) CountCandles(ctx context.Context, symbol, interval string) (int, error) {
	const query = `SELECT COUNT(*) FROM candles WHERE symbol = ? AND interval = ?`
	var count int
	if err := r.db.QueryRowContext(ctx, query, symbol, interval).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count candles for %s %s: %w", symbol, interval, err)
	}
	return count, nil
}

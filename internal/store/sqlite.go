// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	apperrors "pivot-trader/internal/errors"
	"pivot-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", apperrors.ErrDatabaseError, err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to initialize schema: %v", apperrors.ErrDatabaseError, err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Daily OHLCV history
	CREATE TABLE IF NOT EXISTS candles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, timeframe, timestamp)
	);

	-- Watchlist table
	CREATE TABLE IF NOT EXISTS watchlist (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		list_name TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, list_name)
	);

	-- Event calendar; an empty symbol applies to every symbol
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL DEFAULT '',
		event_type TEXT NOT NULL,
		date DATE NOT NULL,
		description TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Sync status table
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_candles_symbol_timeframe ON candles(symbol, timeframe);
	CREATE INDEX IF NOT EXISTS idx_candles_timestamp ON candles(timestamp);
	CREATE INDEX IF NOT EXISTS idx_watchlist_list ON watchlist(list_name);
	CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
	CREATE INDEX IF NOT EXISTS idx_events_symbol ON events(symbol);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Candles Methods
// ============================================================================

// SaveCandles saves candles to the database. Existing bars with the same
// date are replaced.
func (s *SQLiteStore) SaveCandles(ctx context.Context, symbol, timeframe string, candles []models.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", apperrors.ErrDatabaseError, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (symbol, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare statement: %v", apperrors.ErrDatabaseError, err)
	}
	defer stmt.Close()

	for _, c := range candles {
		_, err := stmt.ExecContext(ctx, symbol, timeframe, c.Timestamp.UTC(), c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return fmt.Errorf("%w: failed to insert candle: %v", apperrors.ErrDatabaseError, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", apperrors.ErrDatabaseError, err)
	}

	return nil
}

// GetCandles retrieves candles from the database in ascending date order.
func (s *SQLiteStore) GetCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]models.Candle, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`, symbol, timeframe, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query candles: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var candles []models.Candle
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("%w: failed to scan candle: %v", apperrors.ErrDatabaseError, err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating candles: %v", apperrors.ErrDatabaseError, err)
	}

	return candles, nil
}

// GetCandlesFreshness returns the timestamp of the most recent candle, or
// the zero time when the symbol has no history.
func (s *SQLiteStore) GetCandlesFreshness(ctx context.Context, symbol, timeframe string) (time.Time, error) {
	var timestamp time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp FROM candles WHERE symbol = ? AND timeframe = ?
		ORDER BY timestamp DESC LIMIT 1
	`, symbol, timeframe).Scan(&timestamp)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: failed to get candles freshness: %v", apperrors.ErrDatabaseError, err)
	}
	return timestamp, nil
}

// ListSymbols summarizes every symbol with stored history.
func (s *SQLiteStore) ListSymbols(ctx context.Context, timeframe string) ([]models.SymbolSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM candles WHERE timeframe = ?
		GROUP BY symbol ORDER BY symbol ASC
	`, timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list symbols: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var out []models.SymbolSummary
	for rows.Next() {
		var sum models.SymbolSummary
		var first, last string
		if err := rows.Scan(&sum.Symbol, &sum.Bars, &first, &last); err != nil {
			return nil, fmt.Errorf("%w: failed to scan symbol summary: %v", apperrors.ErrDatabaseError, err)
		}
		// Aggregates lose the column type, so the driver hands back text.
		sum.First = parseTimestamp(first)
		sum.Last = parseTimestamp(last)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteCandles removes the stored history of a symbol.
func (s *SQLiteStore) DeleteCandles(ctx context.Context, symbol, timeframe string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM candles WHERE symbol = ? AND timeframe = ?
	`, symbol, timeframe)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete candles: %v", apperrors.ErrDatabaseError, err)
	}
	return result.RowsAffected()
}

var endOfTime = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Candles returns the full daily history of a symbol. It lets the store serve
// as the candle source of a watchlist scan.
func (s *SQLiteStore) Candles(ctx context.Context, symbol string) ([]models.Candle, error) {
	candles, err := s.GetCandles(ctx, symbol, TimeframeDaily, time.Time{}, endOfTime)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, apperrors.NewDataError("candles", symbol, "no stored history", apperrors.ErrDataNotFound)
	}
	return candles, nil
}

func parseTimestamp(v string) time.Time {
	v = strings.TrimSuffix(v, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ============================================================================
// Watchlist Methods
// ============================================================================

// AddToWatchlist adds a symbol to a watchlist.
func (s *SQLiteStore) AddToWatchlist(ctx context.Context, symbol, listName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO watchlist (symbol, list_name) VALUES (?, ?)
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("%w: failed to add to watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// RemoveFromWatchlist removes a symbol from a watchlist.
func (s *SQLiteStore) RemoveFromWatchlist(ctx context.Context, symbol, listName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist WHERE symbol = ? AND list_name = ?
	`, symbol, listName)
	if err != nil {
		return fmt.Errorf("%w: failed to remove from watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// GetWatchlist retrieves symbols in a watchlist in insertion order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context, listName string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol FROM watchlist WHERE list_name = ? ORDER BY id ASC
	`, listName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query watchlist: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("%w: failed to scan symbol: %v", apperrors.ErrDatabaseError, err)
		}
		symbols = append(symbols, symbol)
	}

	return symbols, rows.Err()
}

// GetAllWatchlists retrieves all watchlists.
func (s *SQLiteStore) GetAllWatchlists(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, symbol FROM watchlist ORDER BY list_name, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query watchlists: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	watchlists := make(map[string][]string)
	for rows.Next() {
		var listName, symbol string
		if err := rows.Scan(&listName, &symbol); err != nil {
			return nil, fmt.Errorf("%w: failed to scan watchlist entry: %v", apperrors.ErrDatabaseError, err)
		}
		watchlists[listName] = append(watchlists[listName], symbol)
	}

	return watchlists, rows.Err()
}

// ============================================================================
// Events Methods
// ============================================================================

// SaveEvent saves a calendar event to the database.
func (s *SQLiteStore) SaveEvent(ctx context.Context, event *models.MarketEvent) error {
	if event.ID == "" {
		event.ID = EventID(event)
	}
	if event.Type == "" {
		event.Type = models.EventOther
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, symbol, event_type, date, description)
		VALUES (?, ?, ?, ?, ?)
	`, event.ID, event.Symbol, event.Type, dayStart(event.Date), event.Description)
	if err != nil {
		return fmt.Errorf("%w: failed to save event: %v", apperrors.ErrDatabaseError, err)
	}
	return nil
}

// GetEvents retrieves events dated within [from, to]. When symbols is
// non-empty only those symbols and market-wide events are returned.
func (s *SQLiteStore) GetEvents(ctx context.Context, symbols []string, from, to time.Time) ([]models.MarketEvent, error) {
	query := `
		SELECT id, symbol, event_type, date, description
		FROM events WHERE date >= ? AND date <= ?
	`
	args := []interface{}{dayStart(from), dayStart(to)}

	if len(symbols) > 0 {
		placeholders := make([]string, len(symbols))
		for i := range symbols {
			placeholders[i] = "?"
			args = append(args, symbols[i])
		}
		query += " AND (symbol = '' OR symbol IN (" + strings.Join(placeholders, ",") + "))"
	}

	query += " ORDER BY date ASC, symbol ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query events: %v", apperrors.ErrDatabaseError, err)
	}
	defer rows.Close()

	var events []models.MarketEvent
	for rows.Next() {
		var e models.MarketEvent
		var desc sql.NullString
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Type, &e.Date, &desc); err != nil {
			return nil, fmt.Errorf("%w: failed to scan event: %v", apperrors.ErrDatabaseError, err)
		}
		e.Description = desc.String
		events = append(events, e)
	}

	return events, rows.Err()
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t.UTC(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: failed to set last sync: %v", apperrors.ErrDatabaseError, err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t.UTC()
	s.mu.Unlock()

	return nil
}

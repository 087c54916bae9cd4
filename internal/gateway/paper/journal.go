package paper

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"tradecore/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Journal persists simulated fills to SQLite for later analysis.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// NewJournal opens (or creates) the fill journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS fills (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id    TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		symbol      TEXT NOT NULL,
		side        TEXT NOT NULL,
		qty         REAL NOT NULL,
		price       REAL NOT NULL,
		notional    REAL NOT NULL,
		filled_at   DATETIME NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_fills_symbol ON fills(symbol);
	CREATE INDEX IF NOT EXISTS idx_fills_user ON fills(user_id);
	CREATE INDEX IF NOT EXISTS idx_fills_filled_at ON fills(filled_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}

	log.Printf("[paper] opened fill journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordFill persists one fill.
func (j *Journal) RecordFill(ctx context.Context, userID string, r model.OrderResult, notional float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO fills (order_id, user_id, symbol, side, qty, price, notional, filled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.OrderID, userID, r.Symbol, string(r.Side), r.FillQty, r.FillPrice, notional,
		r.PlacedAt.UTC().Format(time.RFC3339))
	return err
}

// FillRecord is one row from the fills table.
type FillRecord struct {
	ID       int64   `json:"id"`
	OrderID  string  `json:"order_id"`
	UserID   string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Qty      float64 `json:"qty"`
	Price    float64 `json:"price"`
	Notional float64 `json:"notional"`
	FilledAt string  `json:"filled_at"`
}

// RecentFills returns the last n fills, newest first.
func (j *Journal) RecentFills(ctx context.Context, n int) ([]FillRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, order_id, user_id, symbol, side, qty, price, notional, filled_at
		 FROM fills ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fills []FillRecord
	for rows.Next() {
		var f FillRecord
		if err := rows.Scan(&f.ID, &f.OrderID, &f.UserID, &f.Symbol, &f.Side,
			&f.Qty, &f.Price, &f.Notional, &f.FilledAt); err != nil {
			return nil, err
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}

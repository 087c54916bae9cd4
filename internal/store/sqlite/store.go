// Package sqlite persists bot rows, conditional orders, and per-user
// settings in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"tradecore/internal/model"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements model.BotStore, model.ConditionalOrderStore and
// model.SettingsStore over one database file.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and creates the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// SQLite allows a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", dbPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bots (
			id           TEXT    PRIMARY KEY,
			user_id      TEXT    NOT NULL,
			type         TEXT    NOT NULL,
			symbol       TEXT    NOT NULL,
			status       TEXT    NOT NULL,
			config       TEXT    NOT NULL,
			total_trades INTEGER NOT NULL DEFAULT 0,
			stop_reason  TEXT    NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL,
			updated_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_bots_status ON bots(status);

		CREATE TABLE IF NOT EXISTS conditional_orders (
			id            TEXT    PRIMARY KEY,
			user_id       TEXT    NOT NULL,
			symbol        TEXT    NOT NULL,
			condition     TEXT    NOT NULL,
			trigger_price REAL    NOT NULL,
			action        TEXT    NOT NULL,
			status        TEXT    NOT NULL,
			last_price    REAL    NOT NULL DEFAULT 0,
			error         TEXT    NOT NULL DEFAULT '',
			expires_at    INTEGER,
			created_at    INTEGER NOT NULL,
			triggered_at  INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON conditional_orders(status);

		CREATE TABLE IF NOT EXISTS indicator_settings (
			user_id    TEXT    PRIMARY KEY,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS advanced_settings (
			user_id    TEXT    PRIMARY KEY,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	return err
}

// ── BotStore ──

func (s *Store) ListByStatus(ctx context.Context, status model.BotStatus) ([]model.Bot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, symbol, status, config, total_trades, stop_reason, created_at, updated_at
		FROM bots WHERE status = ? ORDER BY created_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list bots by status %s: %w", status, err)
	}
	defer rows.Close()

	var bots []model.Bot
	for rows.Next() {
		b, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, b)
	}
	return bots, rows.Err()
}

func (s *Store) GetBot(ctx context.Context, id string) (model.Bot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, symbol, status, config, total_trades, stop_reason, created_at, updated_at
		FROM bots WHERE id = ?
	`, id)
	return scanBot(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBot(row rowScanner) (model.Bot, error) {
	var (
		b                    model.Bot
		rawConfig            []byte
		createdAt, updatedAt int64
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Type, &b.Symbol, &b.Status, &rawConfig,
		&b.TotalTrades, &b.StopReason, &createdAt, &updatedAt)
	if err != nil {
		return model.Bot{}, fmt.Errorf("scan bot: %w", err)
	}
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	b.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	b.Config, err = model.DecodeBotConfig(b.Type, rawConfig)
	if err != nil {
		return model.Bot{}, fmt.Errorf("bot %s: %w", b.ID, err)
	}
	return b, nil
}

func (s *Store) CreateBot(ctx context.Context, b model.Bot) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	raw, err := model.EncodeBotConfig(b.Config)
	if err != nil {
		return fmt.Errorf("encode config for bot %s: %w", b.ID, err)
	}
	now := time.Now().Unix()
	created := b.CreatedAt.Unix()
	if b.CreatedAt.IsZero() {
		created = now
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bots (id, user_id, type, symbol, status, config, total_trades, stop_reason, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.UserID, string(b.Type), b.Symbol, string(b.Status), raw, b.TotalTrades, b.StopReason, created, now)
	if err != nil {
		return fmt.Errorf("create bot %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) SaveBotState(ctx context.Context, id string, cfg model.BotConfig, totalTrades int64) error {
	raw, err := model.EncodeBotConfig(cfg)
	if err != nil {
		return fmt.Errorf("encode config for bot %s: %w", id, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE bots SET config = ?, total_trades = ?, updated_at = ? WHERE id = ?
	`, raw, totalTrades, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("save bot %s state: %w", id, err)
	}
	return requireRow(res, "bot", id)
}

func (s *Store) SetBotStatus(ctx context.Context, id string, status model.BotStatus, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bots SET status = ?, stop_reason = ?, updated_at = ? WHERE id = ?
	`, string(status), reason, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("set bot %s status: %w", id, err)
	}
	return requireRow(res, "bot", id)
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s not found", kind, id)
	}
	return nil
}

// ── ConditionalOrderStore ──

func (s *Store) ListActive(ctx context.Context) ([]model.ConditionalOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, symbol, condition, trigger_price, action, status, last_price, error, expires_at, created_at, triggered_at
		FROM conditional_orders WHERE status = ? ORDER BY created_at
	`, string(model.OrderActive))
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	defer rows.Close()

	var orders []model.ConditionalOrder
	for rows.Next() {
		var (
			o                      model.ConditionalOrder
			rawAction              []byte
			expiresAt, triggeredAt sql.NullInt64
			createdAt              int64
		)
		err := rows.Scan(&o.ID, &o.UserID, &o.Symbol, &o.Condition, &o.TriggerPrice,
			&rawAction, &o.Status, &o.LastPrice, &o.Error, &expiresAt, &createdAt, &triggeredAt)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		if err := json.Unmarshal(rawAction, &o.Action); err != nil {
			return nil, fmt.Errorf("order %s: decode action: %w", o.ID, err)
		}
		o.CreatedAt = time.Unix(createdAt, 0).UTC()
		if expiresAt.Valid {
			t := time.Unix(expiresAt.Int64, 0).UTC()
			o.ExpiresAt = &t
		}
		if triggeredAt.Valid {
			t := time.Unix(triggeredAt.Int64, 0).UTC()
			o.TriggeredAt = &t
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) CreateOrder(ctx context.Context, o model.ConditionalOrder) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = model.OrderActive
	}
	rawAction, err := json.Marshal(o.Action)
	if err != nil {
		return fmt.Errorf("encode action for order %s: %w", o.ID, err)
	}
	var expiresAt any
	if o.ExpiresAt != nil {
		expiresAt = o.ExpiresAt.Unix()
	}
	created := o.CreatedAt.Unix()
	if o.CreatedAt.IsZero() {
		created = time.Now().Unix()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conditional_orders (id, user_id, symbol, condition, trigger_price, action, status, last_price, error, expires_at, created_at, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`, o.ID, o.UserID, o.Symbol, string(o.Condition), o.TriggerPrice, rawAction,
		string(o.Status), o.LastPrice, o.Error, expiresAt, created)
	if err != nil {
		return fmt.Errorf("create order %s: %w", o.ID, err)
	}
	return nil
}

// MarkTerminal transitions exactly once: the status guard in the WHERE
// clause makes a double transition a no-op error instead of a silent
// overwrite.
func (s *Store) MarkTerminal(ctx context.Context, id string, status model.OrderStatus, errMsg string, at time.Time) error {
	var triggeredAt any
	if status == model.OrderTriggered {
		triggeredAt = at.Unix()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE conditional_orders SET status = ?, error = ?, triggered_at = ?
		WHERE id = ? AND status = ?
	`, string(status), errMsg, triggeredAt, id, string(model.OrderActive))
	if err != nil {
		return fmt.Errorf("mark order %s %s: %w", id, status, err)
	}
	return requireRow(res, "active order", id)
}

func (s *Store) UpdateLastPrice(ctx context.Context, id string, price float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE conditional_orders SET last_price = ? WHERE id = ?
	`, price, id)
	if err != nil {
		return fmt.Errorf("update order %s last price: %w", id, err)
	}
	return nil
}

// ── SettingsStore ──
// Settings rows are JSON documents decoded over a defaults value, so a
// missing row or a partial document defaults field-by-field instead of
// being rejected.

func (s *Store) GetIndicatorSettings(ctx context.Context, userID string) (model.IndicatorSettings, error) {
	settings := model.DefaultIndicatorSettings(userID)
	if err := s.loadSettings(ctx, "indicator_settings", userID, &settings); err != nil {
		return model.IndicatorSettings{}, err
	}
	settings.UserID = userID
	return settings, nil
}

func (s *Store) SaveIndicatorSettings(ctx context.Context, settings model.IndicatorSettings) error {
	return s.saveSettings(ctx, "indicator_settings", settings.UserID, settings)
}

func (s *Store) GetAdvancedSettings(ctx context.Context, userID string) (model.AdvancedSignalSettings, error) {
	settings := model.DefaultAdvancedSignalSettings(userID)
	if err := s.loadSettings(ctx, "advanced_settings", userID, &settings); err != nil {
		return model.AdvancedSignalSettings{}, err
	}
	settings.UserID = userID
	return settings, nil
}

func (s *Store) SaveAdvancedSettings(ctx context.Context, settings model.AdvancedSignalSettings) error {
	return s.saveSettings(ctx, "advanced_settings", settings.UserID, settings)
}

func (s *Store) loadSettings(ctx context.Context, table, userID string, dst any) error {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM `+table+` WHERE user_id = ?`, userID).Scan(&data)
	if err == sql.ErrNoRows {
		// First access: persist the defaults so partial updates have a
		// row to land on.
		if err := s.saveSettings(ctx, table, userID, dst); err != nil {
			log.Printf("[sqlite] lazy-create %s for %s: %v", table, userID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s for %s: %w", table, userID, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// Malformed row: log and fall back to defaults rather than fail.
		log.Printf("[sqlite] malformed %s row for %s, using defaults: %v", table, userID, err)
	}
	return nil
}

func (s *Store) saveSettings(ctx context.Context, table, userID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, userID, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save %s for %s: %w", table, userID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

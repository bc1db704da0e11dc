package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp    INTEGER NOT NULL,
			conversation TEXT NOT NULL,
			symbol       TEXT,
			message_id   INTEGER,
			user         TEXT,
			text         TEXT,
			shown_time   TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_conv ON chat_messages(conversation, timestamp)`,

		`CREATE TABLE IF NOT EXISTS predictions (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp        INTEGER NOT NULL,
			symbol           TEXT NOT NULL,
			timeframe        TEXT,
			trend            TEXT,
			confidence       TEXT,
			target_price     TEXT,
			support_level    TEXT,
			resistance_level TEXT,
			source           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pred_symbol ON predictions(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS fetch_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			interval    TEXT,
			source      TEXT,
			outcome     TEXT,
			bars        INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fetch_ts ON fetch_log(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordChat(evt *ChatEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := evt.Message
	_, err := r.db.Exec(`INSERT INTO chat_messages
		(timestamp, conversation, symbol, message_id, user, text, shown_time)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Conversation, evt.Symbol, m.ID, m.User, m.Text, m.Time,
	)
	return err
}

func (r *SQLiteRecorder) RecordPrediction(evt *PredictionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := evt.Prediction
	_, err := r.db.Exec(`INSERT INTO predictions
		(timestamp, symbol, timeframe, trend, confidence, target_price, support_level, resistance_level, source)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, p.Timeframe, string(p.Trend), p.Confidence,
		p.TargetPrice, p.SupportLevel, p.ResistanceLevel, string(p.Source),
	)
	return err
}

func (r *SQLiteRecorder) RecordFetch(evt *FetchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO fetch_log
		(timestamp, symbol, interval, source, outcome, bars, duration_ms, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Symbol, evt.Interval, evt.Source, evt.Outcome(),
		evt.Bars, evt.Duration.Milliseconds(), evt.errText(),
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

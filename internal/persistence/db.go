// Package persistence records finished phases: an SQLite round history for
// queries and a compressed JSONL journal of full resolutions for replay.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/83ace42/fish-tycoon/internal/engine"
)

// DB wraps a SQLite connection for round history.
type DB struct {
	conn *sqlx.DB
}

// Record is one resolved phase.
type Record struct {
	ID         int64           `db:"id" json:"id"`
	SessionID  string          `db:"session_id" json:"session_id"`
	Round      int             `db:"round" json:"round"`
	Phase      string          `db:"phase" json:"phase"`
	NextPhase  string          `db:"next_phase" json:"next_phase"`
	Price      sql.NullFloat64 `db:"price" json:"-"`
	TotalCatch sql.NullFloat64 `db:"total_catch" json:"-"`
	Shore      float64         `db:"shore" json:"shore"`
	Deep       float64         `db:"deep" json:"deep"`
	Event      string          `db:"event" json:"event"`
	ResolvedAt time.Time       `db:"resolved_at" json:"resolved_at"`
}

// SessionRow is a registered session.
type SessionRow struct {
	ID        string    `db:"id" json:"id"`
	MaxRounds int       `db:"max_rounds" json:"max_rounds"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Finished  bool      `db:"finished" json:"finished"`
}

// LedgerRow is one participant's ledger after a resolution.
type LedgerRow struct {
	ResolutionID  int64   `db:"resolution_id" json:"-"`
	ParticipantID string  `db:"participant_id" json:"participant_id"`
	Name          string  `db:"name" json:"name"`
	Cash          float64 `db:"cash" json:"cash"`
	Ships         int     `db:"ships" json:"ships"`
	Freezer       float64 `db:"freezer" json:"freezer"`
	LastCatch     float64 `db:"last_catch" json:"last_catch"`
	LastProfit    float64 `db:"last_profit" json:"last_profit"`
	Accepted      bool    `db:"accepted_contract" json:"accepted_contract"`
}

// YearRow is one captain's books at the close of a year.
type YearRow struct {
	Year          int     `db:"year" json:"year"`
	ParticipantID string  `db:"participant_id" json:"participant_id"`
	Player        string  `db:"name" json:"player"`
	Ships         int     `db:"ships" json:"ships"`
	Caught        float64 `db:"last_catch" json:"caught"`
	Frozen        float64 `db:"freezer" json:"frozen"`
	Accepted      bool    `db:"accepted_contract" json:"accepted_contract"`
	Profit        float64 `db:"last_profit" json:"profit"`
	Cash          float64 `db:"cash" json:"cash"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Single writer keeps in-memory databases on one connection.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		max_rounds INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		finished INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS resolutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		phase TEXT NOT NULL,
		next_phase TEXT NOT NULL,
		price REAL,
		total_catch REAL,
		shore REAL NOT NULL,
		deep REAL NOT NULL,
		event TEXT NOT NULL,
		resolved_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ledgers (
		resolution_id INTEGER NOT NULL,
		participant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		cash REAL NOT NULL,
		ships INTEGER NOT NULL,
		freezer REAL NOT NULL,
		last_catch REAL NOT NULL,
		last_profit REAL NOT NULL,
		accepted_contract INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (resolution_id, participant_id)
	);

	CREATE TABLE IF NOT EXISTS log_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		resolution_id INTEGER NOT NULL,
		line TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS harbor_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_resolutions_session ON resolutions(session_id);
	CREATE INDEX IF NOT EXISTS idx_log_lines_resolution ON log_lines(resolution_id);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return err
	}
	// databases created before contract tracking
	return db.addColumn("ledgers", "accepted_contract", "INTEGER NOT NULL DEFAULT 0")
}

func (db *DB) addColumn(table, column, decl string) error {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err := db.conn.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// SaveSession registers a session so its resolutions can be grouped.
func (db *DB) SaveSession(id string, maxRounds int) error {
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO sessions (id, max_rounds, created_at) VALUES (?, ?, ?)",
		id, maxRounds, time.Now().UTC(),
	)
	return err
}

// Session returns a registered session. Unknown ids yield sql.ErrNoRows.
func (db *DB) Session(id string) (SessionRow, error) {
	var row SessionRow
	err := db.conn.Get(&row, "SELECT id, max_rounds, created_at, finished FROM sessions WHERE id = ?", id)
	return row, err
}

// RecordResolution stores a resolution with its ledger and log lines.
func (db *DB) RecordResolution(sessionID string, res *engine.Resolution) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var price, total sql.NullFloat64
	if res.Price != nil {
		price = sql.NullFloat64{Float64: *res.Price, Valid: true}
	}
	if res.Catch != nil {
		total = sql.NullFloat64{Float64: res.Catch.Total, Valid: true}
	}

	r, err := tx.Exec(`INSERT INTO resolutions
		(session_id, round, phase, next_phase, price, total_catch, shore, deep, event, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, res.Round, string(res.Resolved), string(res.Next), price, total,
		res.Ecology.Shore, res.Ecology.Deep, res.Ecology.Event.Name, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert resolution: %w", err)
	}
	id, err := r.LastInsertId()
	if err != nil {
		return err
	}

	for _, p := range res.Ledger {
		// storage clears the flag on the participant; the settlement keeps it
		accepted := p.AcceptedContract
		if st, ok := res.Settlements[p.ID]; ok {
			accepted = st.Accepted
		}
		_, err := tx.Exec(`INSERT INTO ledgers
			(resolution_id, participant_id, name, cash, ships, freezer, last_catch, last_profit, accepted_contract)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, p.ID, p.Name, p.Cash, p.Ships, p.Freezer, p.LastCatch, p.LastProfit, accepted,
		)
		if err != nil {
			return fmt.Errorf("insert ledger %s: %w", p.ID, err)
		}
	}

	for _, line := range res.Log {
		if _, err := tx.Exec("INSERT INTO log_lines (resolution_id, line) VALUES (?, ?)", id, line); err != nil {
			return err
		}
	}

	if res.Next == engine.PhaseGameOver {
		if _, err := tx.Exec("UPDATE sessions SET finished = 1 WHERE id = ?", sessionID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// History returns the most recent resolutions, newest first.
func (db *DB) History(limit int) ([]Record, error) {
	var records []Record
	err := db.conn.Select(&records,
		`SELECT id, session_id, round, phase, next_phase, price, total_catch, shore, deep, event, resolved_at
		 FROM resolutions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	return records, err
}

// Ledger returns the participant ledgers stored with a resolution.
func (db *DB) Ledger(resolutionID int64) ([]LedgerRow, error) {
	var rows []LedgerRow
	err := db.conn.Select(&rows,
		`SELECT resolution_id, participant_id, name, cash, ships, freezer, last_catch, last_profit, accepted_contract
		 FROM ledgers WHERE resolution_id = ? ORDER BY rowid`,
		resolutionID,
	)
	return rows, err
}

// Resolution returns one stored resolution.
func (db *DB) Resolution(id int64) (Record, error) {
	var r Record
	err := db.conn.Get(&r,
		`SELECT id, session_id, round, phase, next_phase, price, total_catch, shore, deep, event, resolved_at
		 FROM resolutions WHERE id = ?`, id)
	return r, err
}

// YearlyRecords returns every captain's books at the close of each year of a
// session, ordered by year then registration.
func (db *DB) YearlyRecords(sessionID string) ([]YearRow, error) {
	var rows []YearRow
	err := db.conn.Select(&rows,
		`SELECT r.round AS year, l.participant_id, l.name, l.ships, l.last_catch, l.freezer,
		        l.accepted_contract, l.last_profit, l.cash
		 FROM resolutions r JOIN ledgers l ON l.resolution_id = r.id
		 WHERE r.session_id = ? AND r.phase = ?
		 ORDER BY r.id, l.rowid`,
		sessionID, string(engine.PhaseStorage),
	)
	return rows, err
}

// LogLines returns the public log lines produced by a resolution, in order.
func (db *DB) LogLines(resolutionID int64) ([]string, error) {
	var lines []string
	err := db.conn.Select(&lines,
		"SELECT line FROM log_lines WHERE resolution_id = ? ORDER BY id", resolutionID)
	return lines, err
}

// Finished reports whether a session reached GAMEOVER.
func (db *DB) Finished(sessionID string) (bool, error) {
	var finished bool
	err := db.conn.Get(&finished, "SELECT finished FROM sessions WHERE id = ?", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return finished, err
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO harbor_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM harbor_meta WHERE key = ?", key)
	return value, err
}

// Hook adapts the DB to a coordinator resolve hook. Failures are logged and
// never reach the game.
func (db *DB) Hook(sessionID string, res *engine.Resolution) {
	if err := db.RecordResolution(sessionID, res); err != nil {
		slog.Error("record resolution failed", "session", sessionID, "round", res.Round, "error", err)
		return
	}
	if err := db.SaveMeta("last_session", sessionID); err != nil {
		slog.Warn("save meta failed", "error", err)
	}
}

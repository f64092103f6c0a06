package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/daydemir/devloop/internal/project"
	"github.com/daydemir/devloop/internal/types"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SQLiteStore persists session state in a SQLite database so separate
// processes (a suspended run and "devloop reply") can share it.
type SQLiteStore struct {
	db          *sql.DB
	projectRoot string
	now         func() time.Time
}

// NewSQLiteStore opens (or creates) dataDir/sessions.db and runs migrations.
func NewSQLiteStore(dataDir, projectRoot string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("session: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "sessions.db")
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("session: open database: %w", err)
	}
	// One writer connection; appends are serialized by the pool.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("session: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, projectRoot: projectRoot, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS objectives (
			name       TEXT PRIMARY KEY,
			active     INTEGER NOT NULL DEFAULT 0,
			completed  INTEGER NOT NULL DEFAULT 0,
			created_at TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    NOT NULL UNIQUE,
			objective  TEXT    NOT NULL REFERENCES objectives(name),
			origin     TEXT    NOT NULL,
			body       TEXT    NOT NULL,
			created_at TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_objective ON messages(objective, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, objective string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO objectives (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		objective, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("session: create %s: %w", objective, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrObjectiveExists, objective)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, objective string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM objectives WHERE name = ?`, objective).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session: lookup %s: %w", objective, err)
	}
	return true, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM objectives ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStore) AppendUserMessage(ctx context.Context, objective, text string) (types.Message, error) {
	return s.append(ctx, objective, types.OriginUser, text)
}

func (s *SQLiteStore) AppendSystemMessage(ctx context.Context, objective, text string) (types.Message, error) {
	return s.append(ctx, objective, types.OriginSystem, text)
}

func (s *SQLiteStore) append(ctx context.Context, objective string, origin types.Origin, text string) (types.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Message{}, fmt.Errorf("session: begin: %w", err)
	}
	defer tx.Rollback()

	if err := requireObjective(ctx, tx, objective); err != nil {
		return types.Message{}, err
	}

	msg := types.Message{
		ID:        uuid.NewString(),
		Origin:    origin,
		Body:      text,
		Timestamp: s.now().UTC(),
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, objective, origin, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, objective, string(origin), text, msg.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return types.Message{}, fmt.Errorf("session: append: %w", err)
	}
	if msg.Seq, err = res.LastInsertId(); err != nil {
		return types.Message{}, fmt.Errorf("session: append: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return types.Message{}, fmt.Errorf("session: commit: %w", err)
	}
	return msg, nil
}

func (s *SQLiteStore) Conversation(ctx context.Context, objective string) (types.Conversation, error) {
	if err := requireObjective(ctx, s.db, objective); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, id, origin, body, created_at FROM messages WHERE objective = ? ORDER BY seq`, objective)
	if err != nil {
		return nil, fmt.Errorf("session: conversation: %w", err)
	}
	defer rows.Close()

	var conv types.Conversation
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		conv = append(conv, msg)
	}
	return conv, rows.Err()
}

func (s *SQLiteStore) LatestUserMessage(ctx context.Context, objective string) (*types.Message, error) {
	if err := requireObjective(ctx, s.db, objective); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, id, origin, body, created_at FROM messages
		 WHERE objective = ? AND origin = ? ORDER BY seq DESC LIMIT 1`, objective, string(types.OriginUser))
	return scanOptional(row)
}

func (s *SQLiteStore) IsLatestMessageFromUser(ctx context.Context, objective string) (bool, error) {
	msg, err := s.TailUserMessage(ctx, objective)
	if err != nil {
		return false, err
	}
	return msg != nil, nil
}

// TailUserMessage reads the tail in one statement so a concurrent append
// cannot interleave between "which is last" and "who wrote it".
func (s *SQLiteStore) TailUserMessage(ctx context.Context, objective string) (*types.Message, error) {
	if err := requireObjective(ctx, s.db, objective); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT seq, id, origin, body, created_at FROM messages
		 WHERE objective = ? ORDER BY seq DESC LIMIT 1`, objective)
	msg, err := scanOptional(row)
	if err != nil || msg == nil {
		return nil, err
	}
	if !msg.FromUser() {
		return nil, nil
	}
	return msg, nil
}

func (s *SQLiteStore) SetActive(ctx context.Context, objective string, active bool) error {
	return s.setFlag(ctx, objective, "active", active)
}

func (s *SQLiteStore) SetCompleted(ctx context.Context, objective string, completed bool) error {
	return s.setFlag(ctx, objective, "completed", completed)
}

func (s *SQLiteStore) setFlag(ctx context.Context, objective, column string, value bool) error {
	// column is one of two constants above, never user input
	res, err := s.db.ExecContext(ctx, `UPDATE objectives SET `+column+` = ? WHERE name = ?`, boolToInt(value), objective)
	if err != nil {
		return fmt.Errorf("session: set %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownObjective, objective)
	}
	return nil
}

func (s *SQLiteStore) Snapshot(ctx context.Context, objective string) (Snapshot, error) {
	var (
		snap      = Snapshot{Objective: objective}
		active    int
		completed int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT o.active, o.completed, o.created_at,
		       (SELECT COUNT(*) FROM messages m WHERE m.objective = o.name)
		FROM objectives o WHERE o.name = ?`, objective).Scan(&active, &completed, &createdAt, &snap.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownObjective, objective)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("session: snapshot: %w", err)
	}
	snap.Active = active != 0
	snap.Completed = completed != 0
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return snap, nil
}

func (s *SQLiteStore) ProjectPath(objective string) string {
	return project.Path(s.projectRoot, objective)
}

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func requireObjective(ctx context.Context, q rowQueryer, objective string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM objectives WHERE name = ?`, objective).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrUnknownObjective, objective)
	}
	if err != nil {
		return fmt.Errorf("session: lookup %s: %w", objective, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (types.Message, error) {
	var (
		msg       types.Message
		origin    string
		createdAt string
	)
	if err := sc.Scan(&msg.Seq, &msg.ID, &origin, &msg.Body, &createdAt); err != nil {
		return types.Message{}, err
	}
	msg.Origin = types.Origin(origin)
	msg.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
	return msg, nil
}

func scanOptional(row *sql.Row) (*types.Message, error) {
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: scan message: %w", err)
	}
	return &msg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

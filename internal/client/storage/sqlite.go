package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atinyakov/todosync/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteFile = "todosync.db"

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS queue (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		pos INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
`

// SQLiteStore keeps the client state in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database in dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, sqliteFile))
	if err != nil {
		return nil, err
	}
	// One connection serialises writers and keeps transactions simple.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Enqueue(a models.SyncAction) error {
	_, err := s.db.Exec(`INSERT INTO queue (type, payload) VALUES (?, ?)`, string(a.Type), payloadText(a.Payload))
	return err
}

func (s *SQLiteStore) PeekAll() ([]models.SyncAction, error) {
	actions, _, err := s.queued(s.db)
	return actions, err
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM queue`)
	return err
}

func (s *SQLiteStore) Ack(n int, ids map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	actions, seqs, err := s.queued(tx)
	if err != nil {
		return err
	}
	if n > len(actions) {
		n = len(actions)
	}
	if n > 0 {
		if _, err := tx.Exec(`DELETE FROM queue WHERE seq <= ?`, seqs[n-1]); err != nil {
			return err
		}
	}

	rest := ackActions(actions, n, ids)
	for i, a := range rest {
		if string(a.Payload) == string(actions[n+i].Payload) {
			continue
		}
		if _, err := tx.Exec(`UPDATE queue SET payload = ? WHERE seq = ?`, payloadText(a.Payload), seqs[n+i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) queued(q querier) ([]models.SyncAction, []int64, error) {
	rows, err := q.Query(`SELECT seq, type, payload FROM queue ORDER BY seq`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	actions := []models.SyncAction{}
	var seqs []int64
	for rows.Next() {
		var (
			seq     int64
			typ     string
			payload string
		)
		if err := rows.Scan(&seq, &typ, &payload); err != nil {
			return nil, nil, err
		}
		actions = append(actions, models.SyncAction{Type: models.ActionType(typ), Payload: json.RawMessage(payload)})
		seqs = append(seqs, seq)
	}
	return actions, seqs, rows.Err()
}

func (s *SQLiteStore) Load() ([]models.Task, error) {
	rows, err := s.db.Query(`SELECT body FROM tasks ORDER BY pos`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var t models.Task
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, fmt.Errorf("decode cached task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Save replaces the cached list in one transaction.
func (s *SQLiteStore) Save(tasks []models.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO tasks (pos, id, body) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range tasks {
		body, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(i, t.ID, string(body)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Token() (string, error) {
	var token string
	err := s.db.QueryRow(`SELECT value FROM session WHERE key = 'token'`).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return token, err
}

func (s *SQLiteStore) SetToken(token string) error {
	_, err := s.db.Exec(`INSERT INTO session (key, value) VALUES ('token', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, token)
	return err
}

func (s *SQLiteStore) ClearToken() error {
	_, err := s.db.Exec(`DELETE FROM session WHERE key = 'token'`)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "null"
	}
	return string(p)
}

// Package storage persists domain globals in a SQLite database so that
// values declared with 'glob' survive restarts.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/funvibe/automa/internal/value"
)

const schema = `
CREATE TABLE IF NOT EXISTS globals (
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	payload TEXT NOT NULL
);`

// Store is a GlobalStore backed by a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database file and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open globals db %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init globals db %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LoadAll reads every persisted global.
func (s *Store) LoadAll() (map[string]value.Value, error) {
	rows, err := s.db.Query(`SELECT name, kind, payload FROM globals`)
	if err != nil {
		return nil, fmt.Errorf("load globals: %w", err)
	}
	defer rows.Close()
	all := make(map[string]value.Value)
	for rows.Next() {
		var name, kind, payload string
		if err := rows.Scan(&name, &kind, &payload); err != nil {
			return nil, fmt.Errorf("load globals: %w", err)
		}
		v, err := decode(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("load global %q: %w", name, err)
		}
		all[name] = v
	}
	return all, rows.Err()
}

// Save writes one global through to the database. Values that cannot be
// represented (functions, threads) are skipped silently; they are
// runtime-only by nature.
func (s *Store) Save(name string, v value.Value) error {
	kind, payload, ok := encode(v)
	if !ok {
		return nil
	}
	_, err := s.db.Exec(
		`INSERT INTO globals (name, kind, payload) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET kind=excluded.kind, payload=excluded.payload`,
		name, kind, payload)
	if err != nil {
		return fmt.Errorf("save global %q: %w", name, err)
	}
	return nil
}

// Delete removes one persisted global.
func (s *Store) Delete(name string) error {
	if _, err := s.db.Exec(`DELETE FROM globals WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete global %q: %w", name, err)
	}
	return nil
}

func encode(v value.Value) (kind, payload string, ok bool) {
	switch v.Kind() {
	case value.KindNull:
		return "null", v.Annotation(), true
	case value.KindNumber:
		return "number", value.FormatNumber(v.Num()), true
	case value.KindString:
		return "string", v.Str(), true
	case value.KindJSON:
		b, err := json.Marshal(v.JSONData())
		if err != nil {
			return "", "", false
		}
		return "json", string(b), true
	}
	return "", "", false
}

func decode(kind, payload string) (value.Value, error) {
	switch kind {
	case "null":
		return value.NullReason("%s", payload), nil
	case "number":
		n, err := value.ParseLiteralNumber(payload)
		if err != nil {
			return value.Value{}, err
		}
		return value.Number(n), nil
	case "string":
		return value.String(payload), nil
	case "json":
		var data any
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return value.Value{}, err
		}
		return value.JSON(data), nil
	}
	return value.Value{}, fmt.Errorf("unknown stored kind %q", kind)
}

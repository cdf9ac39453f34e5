// Package sqlitestore is the durable Store implementation used by the
// terminal console. A single-row SQLite table keeps the marker across runs.
package sqlitestore

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/ctrlcompliance/admin-console/devicetrust"
)

const schema = `
CREATE TABLE IF NOT EXISTS trusted_device (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	marker TEXT    NOT NULL,
	expiry INTEGER NOT NULL
);`

var _ devicetrust.Store = (*Store)(nil)

// Store persists the trusted-device marker in a SQLite database file.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "[sqlitestore.Open] sql.Open")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[sqlitestore.Open] create schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get() (*devicetrust.Marker, error) {
	var (
		value  string
		expiry int64
	)
	err := s.db.QueryRow(`SELECT marker, expiry FROM trusted_device WHERE id = 1`).Scan(&value, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Store.Get] query")
	}
	return &devicetrust.Marker{Value: value, Expiry: time.Unix(expiry, 0)}, nil
}

func (s *Store) Set(m devicetrust.Marker) error {
	_, err := s.db.Exec(
		`INSERT INTO trusted_device (id, marker, expiry) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET marker = excluded.marker, expiry = excluded.expiry`,
		m.Value, m.Expiry.Unix(),
	)
	return errors.Wrap(err, "[Store.Set] upsert")
}

func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM trusted_device WHERE id = 1`)
	return errors.Wrap(err, "[Store.Clear] delete")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

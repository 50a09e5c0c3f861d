// Package statestore persists per-(class, instance) window placement
// across restarts, backed by modernc.org/sqlite. This is additive: the
// client lifecycle only consults it as a starting point for placement,
// never overriding an explicit _NET_WM_DESKTOP message or window rule.
package statestore

import (
	"database/sql"
	"fmt"

	"github.com/jopamo/hxm/internal/transport"
	_ "modernc.org/sqlite"
)

// Record is a remembered placement.
type Record struct {
	Desktop uint32
	X, Y    int32
	W, H    uint32
	Layer   int
}

// maxRows bounds the table with an LRU eviction policy so the store never
// grows unbounded across a long-running session.
const maxRows = 512

// Store wraps a single SQLite connection. Not safe for concurrent use,
// matching the core's single-threaded model — it is only ever
// called from the tick loop.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the placement database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("statestore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("statestore: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS placement (
	class      TEXT NOT NULL,
	instance   TEXT NOT NULL,
	desktop    INTEGER NOT NULL,
	x          INTEGER NOT NULL,
	y          INTEGER NOT NULL,
	w          INTEGER NOT NULL,
	h          INTEGER NOT NULL,
	layer      INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (class, instance)
);
`

// Lookup returns the remembered placement for (class, instance), if any.
func (s *Store) Lookup(class, instance string) (Record, bool) {
	row := s.db.QueryRow(
		`SELECT desktop, x, y, w, h, layer FROM placement WHERE class = ? AND instance = ?`,
		class, instance,
	)
	var rec Record
	if err := row.Scan(&rec.Desktop, &rec.X, &rec.Y, &rec.W, &rec.H, &rec.Layer); err != nil {
		return Record{}, false
	}
	return rec, true
}

// Save upserts the placement for (class, instance) and prunes the table
// down to maxRows by least-recently-updated.
func (s *Store) Save(class, instance string, desktop int, geom transport.Geometry, layer int) error {
	_, err := s.db.Exec(
		`INSERT INTO placement (class, instance, desktop, x, y, w, h, layer, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))
		 ON CONFLICT(class, instance) DO UPDATE SET
		   desktop=excluded.desktop, x=excluded.x, y=excluded.y, w=excluded.w, h=excluded.h,
		   layer=excluded.layer, updated_at=excluded.updated_at`,
		class, instance, desktop, geom.X, geom.Y, geom.Width, geom.Height, layer,
	)
	if err != nil {
		return fmt.Errorf("statestore: save: %w", err)
	}
	s.prune()
	return nil
}

func (s *Store) prune() {
	s.db.Exec(`DELETE FROM placement WHERE rowid IN (
		SELECT rowid FROM placement ORDER BY updated_at DESC LIMIT -1 OFFSET ?
	)`, maxRows)
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

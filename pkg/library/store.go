package library

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tangpei1215/fusion/pkg/abc"
)

// Store is a SQLite-backed cache of class descriptions, for per-type
// lookup without loading a whole database file into memory.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenStore opens (creating if needed) a cache store at the given path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("library: opening store: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("library: setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS types (
		ns TEXT NOT NULL,
		name TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (ns, name)
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("library: creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put writes one class description into the cache, replacing any
// previous entry for the same name.
func (s *Store) Put(d *ClassDesc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := cborEncMode.Marshal(d)
	if err != nil {
		return fmt.Errorf("library: marshal %s: %w", d.FullName, err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO types (ns, name, data) VALUES (?, ?, ?)",
		d.FullName.NS, d.FullName.Name, data,
	)
	if err != nil {
		return fmt.Errorf("library: storing %s: %w", d.FullName, err)
	}
	return nil
}

// PutAll writes every type of a registry into the cache.
func (s *Store) PutAll(r *Registry) error {
	for _, d := range r.All() {
		if err := s.Put(d); err != nil {
			return err
		}
	}
	log.Infof("cached %d types", r.Len())
	return nil
}

// Get retrieves one class description by qualified name.
func (s *Store) Get(name abc.QName) (*ClassDesc, error) {
	var data []byte
	err := s.db.QueryRow(
		"SELECT data FROM types WHERE ns = ? AND name = ?",
		name.NS, name.Name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
		}
		return nil, fmt.Errorf("library: querying %s: %w", name, err)
	}

	var d ClassDesc
	if err := unmarshalDesc(data, &d); err != nil {
		return nil, fmt.Errorf("library: unmarshal %s: %w", name, err)
	}
	return &d, nil
}

// Names lists the qualified names of every cached type.
func (s *Store) Names() ([]abc.QName, error) {
	rows, err := s.db.Query("SELECT ns, name FROM types ORDER BY ns, name")
	if err != nil {
		return nil, fmt.Errorf("library: listing types: %w", err)
	}
	defer rows.Close()

	var names []abc.QName
	for rows.Next() {
		var q abc.QName
		if err := rows.Scan(&q.NS, &q.Name); err != nil {
			return nil, fmt.Errorf("library: scanning type name: %w", err)
		}
		names = append(names, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("library: listing types: %w", err)
	}
	return names, nil
}

// LoadRegistry builds a registry from the whole cache.
func (s *Store) LoadRegistry() (*Registry, error) {
	rows, err := s.db.Query("SELECT data FROM types")
	if err != nil {
		return nil, fmt.Errorf("library: listing types: %w", err)
	}
	defer rows.Close()

	r := NewRegistry()
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("library: scanning type: %w", err)
		}
		var d ClassDesc
		if err := unmarshalDesc(data, &d); err != nil {
			return nil, fmt.Errorf("library: unmarshal cached type: %w", err)
		}
		r.Add(&d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("library: listing types: %w", err)
	}
	return r, nil
}

/*
Package catalog uses SQLite to index the members of FR01 archives so a file
can be found without opening every archive in a client installation.
*/
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/merklejerk/furnarchy-zero-sub001/archive"
	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/compression"

	// Database driver
	_ "github.com/mattn/go-sqlite3"
)

// Catalog holds the SQLite database handle
type Catalog struct {
	db *sql.DB
}

// Result is a single archive member matched by a query
type Result struct {
	Archive      string
	Name         string
	Kind         asset.Kind
	Description  string
	Compression  compression.Type
	Size         int
	OriginalSize int
	Hash         string
}

// New opens an existing catalog or returns a new empty one
func New(file string) (*Catalog, error) {
	if file == "" {
		return nil, errors.New("no file")
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS archive (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS entry (archive_id INTEGER NOT NULL, name TEXT NOT NULL COLLATE NOCASE, compression INTEGER NOT NULL, size INTEGER NOT NULL, original_size INTEGER NOT NULL, kind INTEGER NOT NULL, description TEXT NOT NULL, hash TEXT NOT NULL, FOREIGN KEY(archive_id) REFERENCES archive(id) ON DELETE CASCADE)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS entry_name ON entry (name)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

// Close closes the catalog rendering it unusable
func (c *Catalog) Close() error {
	return c.db.Close()
}

func hash(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

func addArchive(tx *sql.Tx, path string) (int64, error) {
	var id int64
	switch err := tx.QueryRow("SELECT id FROM archive WHERE path = ?", path).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := tx.Exec("INSERT INTO archive (path) VALUES (?)", path)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		if _, err := tx.Exec("DELETE FROM entry WHERE archive_id = ?", id); err != nil {
			return 0, err
		}
		return id, nil
	default:
		return 0, err
	}
}

// AddArchive indexes every member of a, replacing anything previously
// indexed for path. Members that fail to decompress are logged and skipped.
// It returns the number of members indexed. On error the catalog is left as
// it was
func (c *Catalog) AddArchive(path string, a *archive.Archive) (int, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	tx, err := c.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	id, err := addArchive(tx, path)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare("INSERT INTO entry (archive_id, name, compression, size, original_size, kind, description, hash) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, e := range a.Entries() {
		b, err := e.Decompress()
		if err != nil {
			log.Printf("%s: skipping %s: %v", path, e.Name, err)
			continue
		}

		if _, err := stmt.Exec(id, e.Name, e.Compression, e.Size(), e.OriginalSize, asset.Detect(b), asset.Describe(b), hash(b)); err != nil {
			return 0, err
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return n, nil
}

const byPath = "a.path, e.rowid"

func (c *Catalog) query(where, order string, args ...interface{}) ([]Result, error) {
	rows, err := c.db.Query("SELECT a.path, e.name, e.kind, e.description, e.compression, e.size, e.original_size, e.hash FROM entry AS e JOIN archive AS a ON e.archive_id = a.id WHERE "+where+" ORDER BY "+order, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Archive, &r.Name, &r.Kind, &r.Description, &r.Compression, &r.Size, &r.OriginalSize, &r.Hash); err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// Find returns every indexed member called name, ignoring case. A name
// containing * is matched as a pattern
func (c *Catalog) Find(name string) ([]Result, error) {
	if strings.Contains(name, "*") {
		return c.query("lower(e.name) GLOB ?", byPath, strings.ToLower(name))
	}
	return c.query("e.name = ?", byPath, name)
}

// FindKind returns every indexed member detected as kind
func (c *Catalog) FindKind(kind asset.Kind) ([]Result, error) {
	return c.query("e.kind = ?", byPath, kind)
}

// Duplicates returns the members whose extracted contents match another
// member's, grouped by hash
func (c *Catalog) Duplicates() ([]Result, error) {
	return c.query("e.hash IN (SELECT hash FROM entry GROUP BY hash HAVING COUNT(*) > 1)", "e.hash, "+byPath)
}

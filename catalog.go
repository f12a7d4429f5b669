package glb

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/bodgit/glb/sniff"
	_ "github.com/mattn/go-sqlite3"
)

// Catalog is a SQLite database recording every entry extracted from every
// archive.
type Catalog struct {
	db *sql.DB
}

// Record describes one extracted entry.
type Record struct {
	Archive  string
	Index    int
	Name     string
	Category sniff.Category
	Length   int64
	Digest   uint64
	Output   string
}

// NewCatalog opens or creates the catalog stored in file.
func NewCatalog(file string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS archive (id INTEGER PRIMARY KEY NOT NULL, path TEXT NOT NULL UNIQUE, magic TEXT NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS entry (id INTEGER PRIMARY KEY NOT NULL, archive_id INTEGER NOT NULL, idx INTEGER NOT NULL, name TEXT NOT NULL, category INTEGER NOT NULL, length INTEGER NOT NULL, digest TEXT NOT NULL, output TEXT NOT NULL, UNIQUE(archive_id, idx), FOREIGN KEY(archive_id) REFERENCES archive(id))"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS entry_digest ON entry (digest)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{
		db: db,
	}, nil
}

// Close closes the catalog.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func formatDigest(digest uint64) string {
	return fmt.Sprintf("%016X", digest)
}

func parseDigest(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// AddArchive returns the id of the archive at path, adding it if necessary.
func (c *Catalog) AddArchive(path string, magic [8]byte) (int64, error) {
	var id int64
	switch err := c.db.QueryRow("SELECT id FROM archive WHERE path = ?", path).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := c.db.Exec("INSERT INTO archive (path, magic) VALUES (?, ?)", path, fmt.Sprintf("%X", magic))
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// Record stores r against the archive with the given id, replacing any
// previous record for the same entry.
func (c *Catalog) Record(archive int64, r Record) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO entry (archive_id, idx, name, category, length, digest, output) VALUES (?, ?, ?, ?, ?, ?, ?)", archive, r.Index, r.Name, int(r.Category), r.Length, formatDigest(r.Digest), r.Output); err != nil {
		return err
	}
	return nil
}

func scanRecord(row interface{ Scan(...interface{}) error }) (*Record, error) {
	var r Record
	var category int
	var digest string
	if err := row.Scan(&r.Archive, &r.Index, &r.Name, &category, &r.Length, &digest, &r.Output); err != nil {
		return nil, err
	}
	r.Category = sniff.Category(category)

	var err error
	if r.Digest, err = parseDigest(digest); err != nil {
		return nil, err
	}
	return &r, nil
}

const selectRecord = "SELECT a.path, e.idx, e.name, e.category, e.length, e.digest, e.output FROM entry AS e JOIN archive AS a ON e.archive_id = a.id"

// FindByDigest returns the first recorded entry with the given digest, or
// nil if there isn't one.
func (c *Catalog) FindByDigest(digest uint64) (*Record, error) {
	r, err := scanRecord(c.db.QueryRow(selectRecord+" WHERE e.digest = ? ORDER BY e.id LIMIT 1", formatDigest(digest)))
	switch err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return r, nil
	default:
		return nil, err
	}
}

// Entries returns every recorded entry for the archive at path in archive
// order.
func (c *Catalog) Entries(path string) ([]Record, error) {
	rows, err := c.db.Query(selectRecord+" WHERE a.path = ? ORDER BY e.idx", path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}

	return records, rows.Err()
}

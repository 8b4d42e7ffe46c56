package sink

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "modernc.org/sqlite"
)

const createPagesTable = `
CREATE TABLE IF NOT EXISTS pages (
	url TEXT PRIMARY KEY,
	title TEXT,
	text TEXT,
	links TEXT,
	metadata TEXT,
	crawled_at TEXT,
	status_code INTEGER,
	content_type TEXT
)`

// SQLiteSink persists records into a pages table, one row per URL
// (INSERT OR REPLACE, so a re-crawled URL overwrites its prior row),
// batching writes into a single transaction every batchSize records or on
// Close, matching the source's SQLiteStorage buffering.
type SQLiteSink struct {
	db        *sql.DB
	batchSize int

	mu     sync.Mutex
	buffer []Record
}

// NewSQLiteSink opens (or creates) a SQLite database at path and ensures
// the pages table exists. The pure-Go modernc.org/sqlite driver is used so
// the binary stays cgo-free.
func NewSQLiteSink(path string, batchSize int) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createPagesTable); err != nil {
		db.Close()
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SQLiteSink{db: db, batchSize: batchSize}, nil
}

// Save buffers r and flushes once the batch fills.
func (s *SQLiteSink) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, r)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *SQLiteSink) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO pages
		(url, title, text, links, metadata, crawled_at, status_code, content_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range s.buffer {
		links, err := json.Marshal(r.Links)
		if err != nil {
			tx.Rollback()
			return err
		}
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(
			r.URL, r.Title, r.Text, string(links), string(metadata),
			r.CrawledAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			r.StatusCode, r.ContentType,
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.buffer = s.buffer[:0]
	return nil
}

// Close flushes any buffered records and closes the database connection.
func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// Package sink persists crawled pages, per §6's storage contract. Grounded
// on the source's storage package (storage/base.py's DataStorage abstract
// class, storage/json_storage.py, storage/csv_storage.py,
// storage/sqlite_storage.py), translated from asyncio-locked batch buffers
// into mutex-guarded Go writers. Each Sink batches records in memory and
// flushes on batch_size or Close.
package sink

import (
	"time"

	"github.com/devctx/asyncrawler/internal/parser"
)

// Record is one persisted page, the flattened form of a parser.PageRecord
// plus the fetch metadata every sink needs to store.
type Record struct {
	URL         string
	Title       string
	Text        string
	Links       []string
	Metadata    map[string]string
	CrawledAt   time.Time
	StatusCode  int
	ContentType string
}

// FromPageRecord builds a Record from a parsed page and its fetch metadata.
func FromPageRecord(p *parser.PageRecord, statusCode int, contentType string, crawledAt time.Time) Record {
	return Record{
		URL:         p.URL,
		Title:       p.Title,
		Text:        p.Text,
		Links:       p.Links,
		Metadata:    p.Metadata,
		CrawledAt:   crawledAt,
		StatusCode:  statusCode,
		ContentType: contentType,
	}
}

// Sink persists Records. Save may buffer internally; Close flushes any
// buffered records and releases underlying resources.
type Sink interface {
	Save(r Record) error
	Close() error
}

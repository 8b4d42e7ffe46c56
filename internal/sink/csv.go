package sink

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"sync"
)

var csvHeader = []string{"url", "title", "text", "links", "metadata", "crawled_at", "status_code", "content_type"}

// CSVSink appends records as CSV rows, batching writes in memory and
// flushing every batchSize records or on Close, matching the source's
// CSVStorage buffering. The header row is written once, at the first flush.
type CSVSink struct {
	writer    *csv.Writer
	file      *os.File
	batchSize int

	mu            sync.Mutex
	buffer        []Record
	headerWritten bool
}

// NewCSVSink opens (or creates/appends) filename for CSV output.
func NewCSVSink(filename string, batchSize int) (*CSVSink, error) {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &CSVSink{
		writer:        csv.NewWriter(f),
		file:          f,
		batchSize:     batchSize,
		headerWritten: info.Size() > 0,
	}, nil
}

// Save buffers r and flushes once the batch fills.
func (s *CSVSink) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, r)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *CSVSink) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}

	if !s.headerWritten {
		if err := s.writer.Write(csvHeader); err != nil {
			return err
		}
		s.headerWritten = true
	}

	for _, r := range s.buffer {
		row := []string{
			r.URL,
			r.Title,
			r.Text,
			strings.Join(r.Links, "|"),
			encodeMetadata(r.Metadata),
			r.CrawledAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			strconv.Itoa(r.StatusCode),
			r.ContentType,
		}
		if err := s.writer.Write(row); err != nil {
			return err
		}
	}
	s.writer.Flush()
	s.buffer = s.buffer[:0]
	return s.writer.Error()
}

// Close flushes any buffered records and closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func encodeMetadata(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ";")
}

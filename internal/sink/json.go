package sink

import (
	"encoding/json"
	"os"
	"sync"
)

// JSONSink appends one JSON object per line (JSON Lines), batching writes
// in memory and flushing every batchSize records or on Close, matching the
// source's JSONStorage buffering.
type JSONSink struct {
	file      *os.File
	batchSize int

	mu     sync.Mutex
	buffer []Record
}

// NewJSONSink opens (or creates/appends) filename for JSON Lines output.
func NewJSONSink(filename string, batchSize int) (*JSONSink, error) {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &JSONSink{file: f, batchSize: batchSize}, nil
}

// Save buffers r and flushes once the batch fills.
func (s *JSONSink) Save(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, r)
	if len(s.buffer) >= s.batchSize {
		return s.flushLocked()
	}
	return nil
}

func (s *JSONSink) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}
	enc := json.NewEncoder(s.file)
	for _, r := range s.buffer {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	s.buffer = s.buffer[:0]
	return nil
}

// Close flushes any buffered records and closes the file.
func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.flushLocked(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

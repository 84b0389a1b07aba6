// Package report writes human-readable progress and
// results as lines of text.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// A Sink writes report lines to an io.Writer, prefixing
// each line with a short run identifier.
//
// It is safe to use from multiple Goroutines.
type Sink struct {
	lock  sync.Mutex
	w     io.Writer
	runID string
	err   error
}

// NewSink creates a Sink with a fresh run identifier.
//
// A nil writer discards every line.
func NewSink(w io.Writer) *Sink {
	if w == nil {
		w = io.Discard
	}
	return &Sink{w: w, runID: uuid.NewString()[:8]}
}

// RunID returns the identifier shared by all lines of the
// run.
func (s *Sink) RunID() string {
	return s.runID
}

// Printf writes a line. A trailing newline is added if the
// format does not end with one.
func (s *Sink) Printf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, l := range strings.Split(strings.TrimRight(line, "\n"), "\n") {
		if _, err := fmt.Fprintf(s.w, "[%s] %s\n", s.runID, l); err != nil && s.err == nil {
			s.err = err
		}
	}
}

// Err returns the first write error, if any.
func (s *Sink) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.err
}

// Bytes formats a byte count for a report line.
func Bytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}

// Count formats a large integer with digit grouping.
func Count(n int64) string {
	return humanize.Comma(n)
}

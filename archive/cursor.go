package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"

	"github.com/prsense/ghingest/types"
)

// RecordCursor is a forward-only cursor over the records of one hour
// unit. It is finite and not restartable: a fresh fetch starts over.
// Lines that fail to parse as records are skipped and counted, they do
// not abort the cursor.
type RecordCursor struct {
	body    io.Closer
	gz      *gzip.Reader
	scanner *bufio.Scanner

	cur         *types.RawEvent
	err         error
	parseErrors int
}

func newRecordCursor(body io.Closer, gz *gzip.Reader) *RecordCursor {
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)
	return &RecordCursor{body: body, gz: gz, scanner: scanner}
}

func emptyCursor() *RecordCursor {
	return &RecordCursor{}
}

// Next advances to the next parseable record, returning false at
// end-of-stream or on a terminal read error (see Err).
func (c *RecordCursor) Next() bool {
	if c.scanner == nil || c.err != nil {
		return false
	}
	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		event, err := types.ParseRawEvent(line)
		if err != nil {
			c.parseErrors++
			slog.Warn("skipping malformed record", "error", err)
			continue
		}
		c.cur = event
		return true
	}
	c.err = c.scanner.Err()
	return false
}

// Event returns the record the cursor is positioned on.
func (c *RecordCursor) Event() *types.RawEvent {
	return c.cur
}

// Err returns the terminal error, if the stream ended for any reason
// other than a clean end-of-archive.
func (c *RecordCursor) Err() error {
	return c.err
}

// ParseErrors returns how many malformed lines were skipped so far.
func (c *RecordCursor) ParseErrors() int {
	return c.parseErrors
}

func (c *RecordCursor) Close() error {
	if c.gz != nil {
		c.gz.Close()
	}
	if c.body != nil {
		return c.body.Close()
	}
	return nil
}

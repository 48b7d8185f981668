package row_source

import (
	"context"
	"sync"

	"github.com/prsense/ghingest/types"
)

// rows are buffered a little so fetch workers are not lock-stepped with
// the consumer
const streamBuffer = 64

// CollectStats aggregates the per-unit and per-record outcomes of one
// collection run. Per-unit failures are absorbed here rather than
// aborting the run.
type CollectStats struct {
	// units successfully streamed to the end
	UnitsFetched int
	// units abandoned after the retry budget (or mid-stream failure)
	SkippedUnits []string
	// accepted records sent downstream
	RowsMatched int
	// malformed lines skipped inside otherwise-good units
	ParseErrors int
}

// RowStream is a lazy, finite stream of accepted raw events. It is not
// restartable: a fresh Collect call starts the fetch over. Closing the
// stream cancels any fetching still in flight; rows already delivered
// are unaffected.
type RowStream struct {
	rows   chan *types.RawEvent
	cancel context.CancelFunc

	mu    sync.Mutex
	stats CollectStats
	err   error
}

func newRowStream(cancel context.CancelFunc) *RowStream {
	return &RowStream{
		rows:   make(chan *types.RawEvent, streamBuffer),
		cancel: cancel,
	}
}

// Recv returns the next accepted event. ok is false once the stream is
// exhausted; check Err for a terminal failure.
func (s *RowStream) Recv() (event *types.RawEvent, ok bool) {
	event, ok = <-s.rows
	return event, ok
}

// Err returns the terminal error, if the producer aborted.
func (s *RowStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a snapshot of the collection statistics. Only complete
// once Recv has returned false.
func (s *RowStream) Stats() CollectStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stats
	out.SkippedUnits = append([]string(nil), s.stats.SkippedUnits...)
	return out
}

// Close stops the producer. Safe to call at any time, including after
// the stream is exhausted.
func (s *RowStream) Close() {
	s.cancel()
	// drain so producer goroutines blocked on send can observe cancellation
	go func() {
		for range s.rows {
		}
	}()
}

// producer side

func (s *RowStream) send(ctx context.Context, event *types.RawEvent) bool {
	select {
	case s.rows <- event:
		s.mu.Lock()
		s.stats.RowsMatched++
		s.mu.Unlock()
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *RowStream) unitFetched() {
	s.mu.Lock()
	s.stats.UnitsFetched++
	s.mu.Unlock()
}

func (s *RowStream) unitSkipped(unit string) {
	s.mu.Lock()
	s.stats.SkippedUnits = append(s.stats.SkippedUnits, unit)
	s.mu.Unlock()
}

func (s *RowStream) addParseErrors(n int) {
	if n == 0 {
		return
	}
	s.mu.Lock()
	s.stats.ParseErrors += n
	s.mu.Unlock()
}

// finish marks the stream complete; err is the terminal error, or nil
// for a clean end.
func (s *RowStream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.rows)
}

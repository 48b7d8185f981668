package row_source

import (
	"context"
	"fmt"
	"time"

	"github.com/prsense/ghingest/archive"
	"github.com/prsense/ghingest/config"
	"github.com/prsense/ghingest/filter"
)

// RowSource is the interface that represents an upstream data source.
// Sources provided by the SDK:
// - hourly archive over HTTP (gharchive)
// - AWS S3 bucket mirror
// - GCP storage bucket mirror
// - local file system
type RowSource interface {
	// Identifier must return the source name (the registry key)
	Identifier() string

	// Description returns a human readable description of the source
	Description() string

	// Init is called when the row source is created
	// it is responsible for parsing the source config and configuring the source
	Init(ctx context.Context, configData *config.SourceConfigData) error

	// Collect starts a fresh fetch over the requested range and returns a
	// lazy stream of accepted raw events. Calling it again with the same
	// request re-executes the fetch - sources keep no already-read state.
	Collect(ctx context.Context, req *CollectRequest) (*RowStream, error)

	Close() error
}

// baseSource registers the rowSource implementation with the base struct
// (before calling Init) - we do not want to expose this function in the
// RowSource interface
type baseSource interface {
	RegisterImpl(rowSource RowSource)
}

// CollectRequest describes one collection run: a closed day-granularity
// date range and the stream filter to apply.
type CollectRequest struct {
	// inclusive range, day granularity; expanded internally into the
	// source's atomic fetch unit
	From time.Time
	To   time.Time

	Filter *filter.Spec
}

func (r *CollectRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("collect request is required")
	}
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("collect request requires a start and end date")
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("collect request end date %s is before start date %s",
			r.To.Format("2006-01-02"), r.From.Format("2006-01-02"))
	}
	if r.Filter == nil {
		return fmt.Errorf("collect request requires a filter spec")
	}
	return nil
}

// ContainsUnit reports whether the hour unit falls inside the range.
func (r *CollectRequest) ContainsUnit(u archive.HourUnit) bool {
	start := time.Date(r.From.Year(), r.From.Month(), r.From.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(r.To.Year(), r.To.Month(), r.To.Day(), 23, 0, 0, 0, time.UTC)
	t := u.Time()
	return !t.Before(start) && !t.After(end)
}

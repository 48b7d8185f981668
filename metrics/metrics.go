// Package metrics holds the prometheus instrumentation for ingestion
// and preprocessing runs. Collectors are registered on a caller-owned
// registry so embedding programs control the scrape surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ghingest"

type Metrics struct {
	HoursFetched    prometheus.Counter
	HoursSkipped    prometheus.Counter
	EventsMatched   prometheus.Counter
	RowsInserted    prometheus.Counter
	RowsDuplicate   prometheus.Counter
	CleanedEmitted  prometheus.Counter
	StageRejections *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HoursFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hours_fetched_total",
			Help:      "Hour units fetched and streamed to completion",
		}),
		HoursSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hours_skipped_total",
			Help:      "Hour units skipped after exhausting their retry budget",
		}),
		EventsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_matched_total",
			Help:      "Events accepted by the repository/kind filter",
		}),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Raw rows newly inserted into the event store",
		}),
		RowsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_duplicate_total",
			Help:      "Raw rows already present at upsert time",
		}),
		CleanedEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleaned_emitted_total",
			Help:      "Cleaned records appended by preprocessing",
		}),
		StageRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_rejections_total",
			Help:      "Records dropped by each preprocessing stage",
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.HoursFetched,
		m.HoursSkipped,
		m.EventsMatched,
		m.RowsInserted,
		m.RowsDuplicate,
		m.CleanedEmitted,
		m.StageRejections,
	)
	return m
}

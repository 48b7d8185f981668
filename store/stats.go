package store

import (
	"context"
	"fmt"
	"sort"
)

// EntityCount is a raw-event count for a single repository.
type EntityCount struct {
	Entity string
	Count  int64
}

// Stats summarizes the contents of the store. Duplicates is the
// difference between RawTotal and UniqueById; the id primary key keeps
// it at zero unless the underlying file was tampered with.
type Stats struct {
	RawTotal     int64
	UniqueById   int64
	Duplicates   int64
	CleanedTotal int64
	PerEntity    []EntityCount
}

// Stats reports row counts for both tables plus a per-repository
// breakdown of the raw table, extracted from the stored JSON blobs.
func (d *DB) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	row := d.db.QueryRowContext(ctx, `SELECT count(*), count(DISTINCT id) FROM events`)
	if err := row.Scan(&stats.RawTotal, &stats.UniqueById); err != nil {
		return nil, fmt.Errorf("failed to count raw events: %w", err)
	}
	stats.Duplicates = stats.RawTotal - stats.UniqueById

	row = d.db.QueryRowContext(ctx, `SELECT count(*) FROM cleaned`)
	if err := row.Scan(&stats.CleanedTotal); err != nil {
		return nil, fmt.Errorf("failed to count cleaned records: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT json_extract_string(event_data, '$.repo.name') AS entity, count(*)
		FROM events
		GROUP BY entity`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events per repository: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ec EntityCount
		var entity *string
		if err := rows.Scan(&entity, &ec.Count); err != nil {
			return nil, fmt.Errorf("failed to scan per-repository count: %w", err)
		}
		if entity != nil {
			ec.Entity = *entity
		}
		stats.PerEntity = append(stats.PerEntity, ec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(stats.PerEntity, func(i, j int) bool {
		if stats.PerEntity[i].Count != stats.PerEntity[j].Count {
			return stats.PerEntity[i].Count > stats.PerEntity[j].Count
		}
		return stats.PerEntity[i].Entity < stats.PerEntity[j].Entity
	})

	return stats, nil
}

// Package preprocess turns raw stored events into cleaned, tokenized
// records. Processing is a strictly ordered sequence of stages applied
// to one event at a time; the first stage rejecting an event drops it
// and later stages never see it. Every stage is a pure function over
// the event and its extracted text, so each is unit-testable on its own.
package preprocess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prsense/ghingest/config"
	"github.com/prsense/ghingest/metrics"
	"github.com/prsense/ghingest/store"
	"github.com/prsense/ghingest/types"
)

// Stage names the pipeline stage that rejected a record. Rejection is
// an expected filtering outcome, counted in run statistics rather than
// logged as failure.
type Stage string

const (
	StageDedup    Stage = "dedup"
	StageActor    Stage = "actor_filter"
	StageExtract  Stage = "text_extraction"
	StageTrivial  Stage = "triviality"
	StageTokenize Stage = "tokenize"
)

const DefaultMinTokens = 2

// Summary reports the outcome of one preprocessing run.
type Summary struct {
	Read     int
	Emitted  int
	Rejected map[Stage]int
}

// Pipeline runs the preprocessing stages over the raw table of an
// event store and appends the survivors to its cleaned table.
type Pipeline struct {
	db        *store.DB
	patterns  []string
	phrases   map[string]struct{}
	minTokens int
	batchSize int
	metrics   *metrics.Metrics
}

// New builds a pipeline over db. cfg may be nil; empty pattern and
// phrase lists fall back to the compiled-in defaults. m may be nil.
func New(db *store.DB, cfg *config.PreprocessConfig, m *metrics.Metrics) *Pipeline {
	p := &Pipeline{
		db:        db,
		patterns:  defaultBotPatterns,
		phrases:   PhraseSet(defaultTrivialPhrases),
		minTokens: DefaultMinTokens,
		batchSize: config.DefaultBatchSize,
		metrics:   m,
	}
	if cfg != nil {
		if len(cfg.BotPatterns) > 0 {
			p.patterns = cfg.BotPatterns
		}
		if len(cfg.TrivialPhrases) > 0 {
			p.phrases = PhraseSet(cfg.TrivialPhrases)
		}
		if cfg.MinTokens != nil {
			p.minTokens = *cfg.MinTokens
		}
		if cfg.BatchSize != nil {
			p.batchSize = *cfg.BatchSize
		}
	}
	return p
}

// process runs the stages over one event. It returns the cleaned
// record, or nil plus the stage that rejected the event. seen holds the
// ids already present in the cleaned table.
func (p *Pipeline) process(event *types.RawEvent, seen map[string]struct{}) (*types.CleanedRecord, Stage) {
	if _, ok := seen[event.Id]; ok {
		return nil, StageDedup
	}
	if IsBot(event.Actor, p.patterns) {
		return nil, StageActor
	}
	text, ok := ExtractText(event)
	if !ok {
		return nil, StageExtract
	}
	text = Denoise(text)
	if IsTrivial(text, p.phrases) {
		return nil, StageTrivial
	}
	cleaned := Normalize(text)
	tokens := Tokenize(cleaned)
	if len(tokens) < p.minTokens {
		return nil, StageTokenize
	}

	return &types.CleanedRecord{
		Id:          event.Id,
		CleanedText: cleaned,
		Entity:      event.Entity,
		Timestamp:   event.Timestamp,
		Kind:        event.Kind,
		AuthorRole:  AuthorRole(event),
		Tokens:      tokens,
	}, ""
}

// Run makes a single sequential pass over the raw table. A record's
// outcome depends only on its own payload and the cleaned rows
// committed before this run, so interrupted runs are safely resumable.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	seen, err := p.db.CleanedIds(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := p.db.StreamRaw(ctx)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	summary := &Summary{Rejected: make(map[Stage]int)}
	batch := make([]*types.CleanedRecord, 0, p.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := p.db.AppendCleaned(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to append cleaned records: %w", err)
		}
		summary.Emitted += inserted
		if p.metrics != nil {
			p.metrics.CleanedEmitted.Add(float64(inserted))
		}
		batch = batch[:0]
		return nil
	}

	for cursor.Next() {
		summary.Read++
		record, stage := p.process(cursor.Event(), seen)
		if record == nil {
			summary.Rejected[stage]++
			if p.metrics != nil {
				p.metrics.StageRejections.WithLabelValues(string(stage)).Inc()
			}
			continue
		}

		seen[record.Id] = struct{}{}
		batch = append(batch, record)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}

	slog.Info("preprocessing complete",
		"read", summary.Read,
		"emitted", summary.Emitted,
		"rejected", summary.Rejected)
	return summary, nil
}

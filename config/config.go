package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/mitchellh/go-homedir"

	"github.com/prsense/ghingest/filter"
	"github.com/prsense/ghingest/types"
)

const (
	DefaultBatchSize = 500
	DefaultStorePath = "~/.ghingest/events.db"

	dateLayout = "2006-01-02"
)

// Config is the root of the ghingest HCL config file.
type Config struct {
	Filter     *FilterConfig     `hcl:"filter,block"`
	Extraction *ExtractionConfig `hcl:"extraction,block"`
	Sources    []*SourceBlock    `hcl:"source,block"`
	Store      *StoreConfig      `hcl:"store,block"`
	Preprocess *PreprocessConfig `hcl:"preprocess,block"`
}

func (c *Config) Validate() error {
	// only ingestion needs a filter; read-only commands work without one
	if c.Filter != nil {
		if err := c.Filter.Validate(); err != nil {
			return err
		}
	}
	if c.Extraction != nil {
		if c.Filter == nil {
			return fmt.Errorf("an extraction block requires a filter block")
		}
		if err := c.Extraction.Validate(); err != nil {
			return err
		}
	}
	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if _, ok := seen[s.Type]; ok {
			return fmt.Errorf("duplicate source block %q", s.Type)
		}
		seen[s.Type] = struct{}{}
	}
	return nil
}

// SourceConfigData returns the config data for the named source block,
// or an empty one if the file carries no block for that source.
func (c *Config) SourceConfigData(sourceType string) *SourceConfigData {
	for _, s := range c.Sources {
		if s.Type == sourceType {
			return &SourceConfigData{Type: s.Type, Body: s.Body}
		}
	}
	return &SourceConfigData{Type: sourceType}
}

// SourceBlock is one labeled source block; its body is decoded later by
// the source implementation that owns the schema.
type SourceBlock struct {
	Type string   `hcl:"type,label"`
	Body hcl.Body `hcl:",remain"`
}

// FilterConfig describes which (entity, kind) pairs are retained.
type FilterConfig struct {
	Repositories []string `hcl:"repositories"`
	EventTypes   []string `hcl:"event_types,optional"`
}

func (f *FilterConfig) Validate() error {
	if len(f.Repositories) == 0 {
		return fmt.Errorf("filter: at least one repository is required")
	}
	for _, r := range f.Repositories {
		if !strings.Contains(r, "/") {
			return fmt.Errorf("filter: repository %q is not in owner/name form", r)
		}
	}
	return nil
}

// Spec builds the stream filter predicate. When no event types are
// configured the four text-carrying kinds are used.
func (f *FilterConfig) Spec() *filter.Spec {
	kinds := types.DefaultEventKinds()
	if len(f.EventTypes) > 0 {
		kinds = make([]types.EventKind, len(f.EventTypes))
		for i, e := range f.EventTypes {
			kinds[i] = types.EventKind(e)
		}
	}
	return filter.NewSpec(f.Repositories, kinds)
}

// ExtractionConfig drives one ingestion run.
type ExtractionConfig struct {
	Source    string `hcl:"source"`
	StartDate string `hcl:"start_date"`
	EndDate   string `hcl:"end_date"`
	BatchSize *int   `hcl:"batch_size"`
}

func (e *ExtractionConfig) Validate() error {
	if e.Source == "" {
		return fmt.Errorf("extraction: source is required")
	}
	from, to, err := e.DateRange()
	if err != nil {
		return err
	}
	if to.Before(from) {
		return fmt.Errorf("extraction: end_date %s is before start_date %s", e.EndDate, e.StartDate)
	}
	if e.BatchSize != nil && *e.BatchSize < 1 {
		return fmt.Errorf("extraction: batch_size must be at least 1")
	}
	return nil
}

// DateRange parses the inclusive day-granularity range.
func (e *ExtractionConfig) DateRange() (from, to time.Time, err error) {
	from, err = time.Parse(dateLayout, e.StartDate)
	if err != nil {
		return from, to, fmt.Errorf("extraction: invalid start_date %q: %w", e.StartDate, err)
	}
	to, err = time.Parse(dateLayout, e.EndDate)
	if err != nil {
		return from, to, fmt.Errorf("extraction: invalid end_date %q: %w", e.EndDate, err)
	}
	return from, to, nil
}

func (e *ExtractionConfig) GetBatchSize() int {
	if e.BatchSize != nil {
		return *e.BatchSize
	}
	return DefaultBatchSize
}

// StoreConfig locates the event store database file.
type StoreConfig struct {
	Path string `hcl:"path,optional"`
}

// ResolvePath expands ~ and applies the default location.
func (s *StoreConfig) ResolvePath() (string, error) {
	p := DefaultStorePath
	if s != nil && s.Path != "" {
		p = s.Path
	}
	return homedir.Expand(p)
}

// PreprocessConfig tunes the preprocessing pipeline. The bot pattern and
// trivial phrase lists are configuration data, not core logic; empty
// lists fall back to the compiled-in defaults.
type PreprocessConfig struct {
	MinTokens      *int     `hcl:"min_tokens"`
	BotPatterns    []string `hcl:"bot_patterns,optional"`
	TrivialPhrases []string `hcl:"trivial_phrases,optional"`
	BatchSize      *int     `hcl:"batch_size"`
}

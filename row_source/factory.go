package row_source

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/prsense/ghingest/config"
)

// Factory maps source names to constructors. It is built explicitly at
// process start by the composition root and passed into the
// orchestration entry point - registration order is deterministic and
// there is no global mutable state. It is read-only after population.
type Factory struct {
	sourceFuncs map[string]func() RowSource
}

func NewFactory() *Factory {
	return &Factory{
		sourceFuncs: make(map[string]func() RowSource),
	}
}

// RegisterRowSources registers RowSource constructors. Registering the
// same name twice is a configuration defect and fails immediately so a
// source cannot be silently shadowed.
func (f *Factory) RegisterRowSources(sourceFuncs ...func() RowSource) error {
	for _, ctor := range sourceFuncs {
		// create an instance of the source to get the identifier
		c := ctor()
		name := c.Identifier()
		if _, exists := f.sourceFuncs[name]; exists {
			return fmt.Errorf("source already registered: %s", name)
		}
		f.sourceFuncs[name] = ctor
	}
	return nil
}

// GetRowSource instantiates and initialises the named row source. An
// unregistered name fails, listing the known names to aid operators.
func (f *Factory) GetRowSource(ctx context.Context, name string, configData *config.SourceConfigData) (RowSource, error) {
	ctor, ok := f.sourceFuncs[name]
	if !ok {
		return nil, fmt.Errorf("source not registered: %s (registered sources: %s)",
			name, strings.Join(f.SourceNames(), ", "))
	}
	source := ctor()

	// register the rowsource implementation with the base struct (_before_ calling Init)
	base, ok := source.(baseSource)
	if !ok {
		return nil, fmt.Errorf("source implementation must embed row_source.RowSourceImpl")
	}
	base.RegisterImpl(source)

	if err := source.Init(ctx, configData); err != nil {
		return nil, fmt.Errorf("failed to initialise source: %w", err)
	}
	return source, nil
}

// SourceNames returns the registered source names, sorted.
func (f *Factory) SourceNames() []string {
	names := maps.Keys(f.sourceFuncs)
	slices.Sort(names)
	return names
}

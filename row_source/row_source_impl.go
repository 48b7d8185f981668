package row_source

import (
	"context"
	"log/slog"

	"github.com/prsense/ghingest/config"
)

// RowSourceImpl is a base implementation of the [RowSource] interface.
// It parses the source config block and provides default implementations
// of Close and Description.
// It should be embedded in all [RowSource] implementations.
//
// S is the type of the source config struct
type RowSourceImpl[S config.SourceConfig] struct {
	Config S

	// reference to the derived RowSource type so base orchestration can
	// call its methods; set by the source factory
	Source RowSource
}

// RegisterImpl is called by the source factory to register the outer
// implementation with the base.
func (r *RowSourceImpl[S]) RegisterImpl(source RowSource) {
	r.Source = source
}

// Init parses and validates the source config block.
func (r *RowSourceImpl[S]) Init(_ context.Context, configData *config.SourceConfigData) error {
	c, err := config.DecodeSource[S](configData)
	if err != nil {
		return err
	}
	r.Config = c
	slog.Debug("initialized row source", "source", r.Source.Identifier())
	return nil
}

// Close is a default implementation of the [RowSource] Close interface function
func (r *RowSourceImpl[S]) Close() error {
	return nil
}

func (*RowSourceImpl[S]) Description() string {
	// override if you want to provide a description
	return ""
}

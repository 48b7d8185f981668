package artifact_loader

import (
	"compress/gzip"
	"context"
	"fmt"
	"os"

	"github.com/prsense/ghingest/types"
)

// GzipRowLoader is a Loader that streams a gzipped artifact a line at a time
type GzipRowLoader struct {
}

func NewGzipRowLoader() Loader {
	return &GzipRowLoader{}
}

func (g GzipRowLoader) Identifier() string {
	return GzipRowLoaderIdentifier
}

// Load implements Loader
func (g GzipRowLoader) Load(ctx context.Context, localPath string, dataChan chan<- *types.RowData) error {
	gzFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer gzFile.Close()

	gzReader, err := gzip.NewReader(gzFile)
	if err != nil {
		return fmt.Errorf("error creating gzip reader for %s: %w", localPath, err)
	}
	defer gzReader.Close()

	return scanRows(ctx, gzReader, localPath, dataChan)
}

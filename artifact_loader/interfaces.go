package artifact_loader

import (
	"context"
	"strings"

	"github.com/prsense/ghingest/types"
)

const (
	GzipRowLoaderIdentifier = "gzip_row_loader"
	FileRowLoaderIdentifier = "file_row_loader"
)

// Loader streams rows out of a locally saved artifact, performing any
// necessary decompression. Load sends one RowData per line and returns
// when the artifact is exhausted or the context is cancelled; the caller
// owns dataChan and closes it.
type Loader interface {
	Identifier() string
	Load(ctx context.Context, localPath string, dataChan chan<- *types.RowData) error
}

// LoaderForPath picks a loader from the file extension.
func LoaderForPath(path string) Loader {
	if strings.HasSuffix(path, ".gz") {
		return NewGzipRowLoader()
	}
	return NewFileRowLoader()
}

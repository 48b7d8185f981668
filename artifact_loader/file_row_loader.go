package artifact_loader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prsense/ghingest/types"
)

// FileRowLoader is a Loader that streams a plain file a line at a time
type FileRowLoader struct {
}

func NewFileRowLoader() Loader {
	return &FileRowLoader{}
}

func (g FileRowLoader) Identifier() string {
	return FileRowLoaderIdentifier
}

// Load implements Loader
func (g FileRowLoader) Load(ctx context.Context, localPath string, dataChan chan<- *types.RowData) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer f.Close()

	return scanRows(ctx, f, localPath, dataChan)
}

// archive lines hold full PR/comment payloads and can run large
const maxLineSize = 16 * 1024 * 1024

func scanRows(ctx context.Context, r io.Reader, location string, dataChan chan<- *types.RowData) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)

	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		select {
		case dataChan <- &types.RowData{Data: line, SourceLocation: location}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

package row_source

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/prsense/ghingest/archive"
	"github.com/prsense/ghingest/artifact_loader"
	"github.com/prsense/ghingest/config"
	"github.com/prsense/ghingest/types"
)

// ArtifactInfo describes one discovered hour-unit artifact (an hourly
// .json.gz object in a bucket, or a file on disk).
type ArtifactInfo struct {
	// source-relative identifier (object key or file path)
	Name string
	// the hour the artifact covers, parsed from its filename
	Unit archive.HourUnit
}

// ArtifactSource is a [RowSource] whose hour units live as discrete
// artifacts in some store. Implementations discover the artifacts in
// range and fetch each one to a local file; the shared base streams the
// rows out of the downloaded artifacts.
type ArtifactSource interface {
	RowSource

	// DiscoverArtifacts lists the artifacts falling inside the request range
	DiscoverArtifacts(ctx context.Context, req *CollectRequest) ([]*ArtifactInfo, error)

	// DownloadArtifact fetches one artifact and returns its local path
	DownloadArtifact(ctx context.Context, info *ArtifactInfo) (string, error)
}

// ArtifactSourceImpl is the base implementation for artifact-backed
// sources. It should be embedded in all [ArtifactSource] implementations.
type ArtifactSourceImpl[S config.SourceConfig] struct {
	RowSourceImpl[S]

	// shadow the RowSourceImpl Source property, using the ArtifactSource interface
	Source ArtifactSource

	// scratch dir for downloaded artifacts; empty when the source reads
	// local files in place
	TmpDir string
}

func (a *ArtifactSourceImpl[S]) Init(ctx context.Context, configData *config.SourceConfigData) error {
	if err := a.RowSourceImpl.Init(ctx, configData); err != nil {
		return err
	}

	// store RowSourceImpl.Source as an ArtifactSource
	impl, ok := a.RowSourceImpl.Source.(ArtifactSource)
	if !ok {
		return errors.New("ArtifactSourceImpl.Source must implement ArtifactSource")
	}
	a.Source = impl
	return nil
}

// Close removes any downloaded artifacts.
func (a *ArtifactSourceImpl[S]) Close() error {
	if a.TmpDir == "" {
		return nil
	}
	return os.RemoveAll(a.TmpDir)
}

// Collect implements [RowSource]: discover, then download and load with
// a bounded worker pool. A failed artifact is reported as a skipped unit
// and collection continues.
func (a *ArtifactSourceImpl[S]) Collect(ctx context.Context, req *CollectRequest) (*RowStream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	artifacts, err := a.Source.DiscoverArtifacts(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Debug("discovered artifacts", "source", a.Source.Identifier(), "count", len(artifacts))

	collectCtx, cancel := context.WithCancel(ctx)
	stream := newRowStream(cancel)

	go func() {
		defer stream.finish(nil)

		sem := semaphore.NewWeighted(DefaultFetchConcurrency)
		var wg sync.WaitGroup
		for _, info := range artifacts {
			if err := sem.Acquire(collectCtx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(info *ArtifactInfo) {
				defer wg.Done()
				defer sem.Release(1)
				a.collectArtifact(collectCtx, info, req, stream)
			}(info)
		}
		wg.Wait()
	}()

	return stream, nil
}

func (a *ArtifactSourceImpl[S]) collectArtifact(ctx context.Context, info *ArtifactInfo, req *CollectRequest, stream *RowStream) {
	if ctx.Err() != nil {
		return
	}
	localPath, err := a.Source.DownloadArtifact(ctx, info)
	if err != nil {
		slog.Warn("skipping artifact, download failed", "artifact", info.Name, "error", err)
		stream.unitSkipped(info.Unit.String())
		return
	}
	// downloaded copies are scratch files, remove once loaded
	if a.TmpDir != "" && strings.HasPrefix(localPath, a.TmpDir) {
		defer os.Remove(localPath)
	}

	loader := artifact_loader.LoaderForPath(localPath)
	dataChan := make(chan *types.RowData, streamBuffer)
	loadErrChan := make(chan error, 1)
	go func() {
		loadErrChan <- loader.Load(ctx, localPath, dataChan)
		close(dataChan)
	}()

	parseErrors := 0
	for row := range dataChan {
		line := bytes.TrimSpace(row.Data)
		if len(line) == 0 {
			continue
		}
		event, err := types.ParseRawEvent(line)
		if err != nil {
			parseErrors++
			slog.Warn("skipping malformed record", "artifact", info.Name, "error", err)
			continue
		}
		if !req.Filter.Matches(event) {
			continue
		}
		if !stream.send(ctx, event) {
			break
		}
	}
	stream.addParseErrors(parseErrors)

	loadErr := <-loadErrChan
	if ctx.Err() != nil {
		return
	}
	if loadErr != nil {
		slog.Warn("artifact failed mid-load", "artifact", info.Name, "error", loadErr)
		stream.unitSkipped(info.Unit.String())
		return
	}
	stream.unitFetched()
}

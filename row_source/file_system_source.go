package row_source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/prsense/ghingest/archive"
	"github.com/prsense/ghingest/config"
)

const FileSystemSourceIdentifier = "file_system"

// FileSystemSourceConfig is the HCL config for the local-archive source.
type FileSystemSourceConfig struct {
	Paths []string `hcl:"paths"`
}

func (c *FileSystemSourceConfig) Identifier() string {
	return FileSystemSourceIdentifier
}

func (c *FileSystemSourceConfig) Validate() error {
	if len(c.Paths) == 0 {
		return fmt.Errorf("paths is required")
	}
	return nil
}

// FileSystemSource is an [ArtifactSource] over hourly archive files
// already on local disk (for example a partial mirror kept for reruns).
type FileSystemSource struct {
	ArtifactSourceImpl[*FileSystemSourceConfig]
}

func NewFileSystemSource() RowSource {
	return &FileSystemSource{}
}

func (s *FileSystemSource) Identifier() string {
	return FileSystemSourceIdentifier
}

func (s *FileSystemSource) Description() string {
	return "hourly archive files on the local file system"
}

func (s *FileSystemSource) Init(ctx context.Context, configData *config.SourceConfigData) error {
	if err := s.ArtifactSourceImpl.Init(ctx, configData); err != nil {
		return err
	}
	slog.Debug("initialized FileSystemSource", "paths", s.Config.Paths)
	return nil
}

func (s *FileSystemSource) DiscoverArtifacts(ctx context.Context, req *CollectRequest) ([]*ArtifactInfo, error) {
	var artifacts []*ArtifactInfo
	for _, root := range s.Config.Paths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			unit, ok := archive.ParseHourFileName(path)
			if !ok || !req.ContainsUnit(unit) {
				return nil
			}
			artifacts = append(artifacts, &ArtifactInfo{Name: path, Unit: unit})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Unit.Time().Before(artifacts[j].Unit.Time()) })
	return artifacts, nil
}

// DownloadArtifact is a no-op for local files - they are loaded in place.
func (s *FileSystemSource) DownloadArtifact(_ context.Context, info *ArtifactInfo) (string, error) {
	return info.Name, nil
}

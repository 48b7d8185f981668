package row_source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/prsense/ghingest/archive"
	"github.com/prsense/ghingest/config"
)

const GcpStorageBucketSourceIdentifier = "gcp_storage_bucket"

// GcpStorageBucketSourceConfig is the HCL config for a GCS archive mirror.
type GcpStorageBucketSourceConfig struct {
	Bucket      string  `hcl:"bucket"`
	Prefix      string  `hcl:"prefix,optional"`
	Credentials *string `hcl:"credentials"`
}

func (c *GcpStorageBucketSourceConfig) Identifier() string {
	return GcpStorageBucketSourceIdentifier
}

func (c *GcpStorageBucketSourceConfig) Validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	return nil
}

// GcpStorageBucketSource is an [ArtifactSource] over a GCP storage
// bucket holding a mirror of the hourly archive.
type GcpStorageBucketSource struct {
	ArtifactSourceImpl[*GcpStorageBucketSourceConfig]

	client *storage.Client
}

func NewGcpStorageBucketSource() RowSource {
	return &GcpStorageBucketSource{}
}

func (s *GcpStorageBucketSource) Identifier() string {
	return GcpStorageBucketSourceIdentifier
}

func (s *GcpStorageBucketSource) Description() string {
	return "hourly archive mirror in a GCP storage bucket"
}

func (s *GcpStorageBucketSource) Init(ctx context.Context, configData *config.SourceConfigData) error {
	if err := s.ArtifactSourceImpl.Init(ctx, configData); err != nil {
		return err
	}

	s.TmpDir = filepath.Join(os.TempDir(), "ghingest", fmt.Sprintf("gcs-%s", s.Config.Bucket))
	if err := os.MkdirAll(s.TmpDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}

	var opts []option.ClientOption
	if s.Config.Credentials != nil {
		opts = append(opts, option.WithCredentialsFile(*s.Config.Credentials))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}
	s.client = client

	slog.Debug("initialized GcpStorageBucketSource", "bucket", s.Config.Bucket, "prefix", s.Config.Prefix)
	return nil
}

func (s *GcpStorageBucketSource) Close() error {
	var errs []error
	if s.client != nil {
		errs = append(errs, s.client.Close())
	}
	errs = append(errs, s.ArtifactSourceImpl.Close())
	return errors.Join(errs...)
}

func (s *GcpStorageBucketSource) DiscoverArtifacts(ctx context.Context, req *CollectRequest) ([]*ArtifactInfo, error) {
	var artifacts []*ArtifactInfo
	bucket := s.client.Bucket(s.Config.Bucket)
	objectIterator := bucket.Objects(ctx, &storage.Query{Prefix: s.Config.Prefix})
	for {
		attrs, err := objectIterator.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in %s: %w", s.Config.Bucket, err)
		}
		unit, ok := archive.ParseHourFileName(attrs.Name)
		if !ok || !req.ContainsUnit(unit) {
			continue
		}
		artifacts = append(artifacts, &ArtifactInfo{Name: attrs.Name, Unit: unit})
	}
	return artifacts, nil
}

func (s *GcpStorageBucketSource) DownloadArtifact(ctx context.Context, info *ArtifactInfo) (string, error) {
	reader, err := s.client.Bucket(s.Config.Bucket).Object(info.Name).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to open object %s: %w", info.Name, err)
	}
	defer reader.Close()

	localPath := filepath.Join(s.TmpDir, info.Unit.FileName())
	outFile, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, reader); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write artifact to file: %w", err)
	}
	return localPath, nil
}

package row_source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/prsense/ghingest/archive"
	"github.com/prsense/ghingest/config"
)

const (
	AwsS3BucketSourceIdentifier = "aws_s3_bucket"
	defaultBucketRegion         = "us-east-1"
)

// AwsS3BucketSourceConfig is the HCL config for an S3 archive mirror.
type AwsS3BucketSourceConfig struct {
	Bucket    string  `hcl:"bucket"`
	Prefix    string  `hcl:"prefix,optional"`
	Region    *string `hcl:"region"`
	Profile   *string `hcl:"profile"`
	AccessKey *string `hcl:"access_key"`
	SecretKey *string `hcl:"secret_key"`
}

func (c *AwsS3BucketSourceConfig) Identifier() string {
	return AwsS3BucketSourceIdentifier
}

func (c *AwsS3BucketSourceConfig) Validate() error {
	if c.Bucket == "" {
		return errors.New("bucket is required")
	}
	if c.AccessKey != nil && c.SecretKey == nil {
		return errors.New("access_key set without secret_key")
	}
	if c.AccessKey == nil && c.SecretKey != nil {
		return errors.New("secret_key set without access_key")
	}
	return nil
}

// AwsS3BucketSource is an [ArtifactSource] over an S3 bucket holding a
// mirror of the hourly archive (hourly .json.gz objects, optionally
// under a prefix).
type AwsS3BucketSource struct {
	ArtifactSourceImpl[*AwsS3BucketSourceConfig]

	client *s3.Client
}

func NewAwsS3BucketSource() RowSource {
	return &AwsS3BucketSource{}
}

func (s *AwsS3BucketSource) Identifier() string {
	return AwsS3BucketSourceIdentifier
}

func (s *AwsS3BucketSource) Description() string {
	return "hourly archive mirror in an AWS S3 bucket"
}

func (s *AwsS3BucketSource) Init(ctx context.Context, configData *config.SourceConfigData) error {
	if err := s.ArtifactSourceImpl.Init(ctx, configData); err != nil {
		return err
	}

	s.TmpDir = filepath.Join(os.TempDir(), "ghingest", fmt.Sprintf("s3-%s", s.Config.Bucket))
	if err := os.MkdirAll(s.TmpDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return err
	}
	s.client = client

	slog.Debug("initialized AwsS3BucketSource", "bucket", s.Config.Bucket, "prefix", s.Config.Prefix)
	return nil
}

func (s *AwsS3BucketSource) getClient(ctx context.Context) (*s3.Client, error) {
	region := defaultBucketRegion
	if s.Config.Region != nil {
		region = *s.Config.Region
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if s.Config.Profile != nil {
		opts = append(opts, awsconfig.WithSharedConfigProfile(*s.Config.Profile))
	}
	if s.Config.AccessKey != nil && s.Config.SecretKey != nil {
		provider := credentials.NewStaticCredentialsProvider(*s.Config.AccessKey, *s.Config.SecretKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(provider))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *AwsS3BucketSource) DiscoverArtifacts(ctx context.Context, req *CollectRequest) ([]*ArtifactInfo, error) {
	var artifacts []*ArtifactInfo
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.Config.Bucket,
		Prefix: &s.Config.Prefix,
	})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get page of S3 objects: %w", err)
		}
		for _, object := range output.Contents {
			key := *object.Key
			unit, ok := archive.ParseHourFileName(key)
			if !ok || !req.ContainsUnit(unit) {
				continue
			}
			artifacts = append(artifacts, &ArtifactInfo{Name: key, Unit: unit})
		}
	}
	return artifacts, nil
}

func (s *AwsS3BucketSource) DownloadArtifact(ctx context.Context, info *ArtifactInfo) (string, error) {
	getObjectOutput, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.Config.Bucket,
		Key:    &info.Name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to download artifact: %w", err)
	}
	defer getObjectOutput.Body.Close()

	localPath := filepath.Join(s.TmpDir, info.Unit.FileName())
	outFile, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, getObjectOutput.Body); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write artifact to file: %w", err)
	}
	return localPath, nil
}

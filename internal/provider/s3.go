package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nebulacloud/console/internal/domain"
)

// s3Lister is the subset of the S3 client used for listings.
type s3Lister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FileListing lists bucket objects stored under <owner>/<bucket-id>/ in one backing S3 bucket.
type S3FileListing struct {
	client   s3Lister
	bucket   string
	maxPages int
}

var _ FileListing = (*S3FileListing)(nil)

// NewS3FileListing loads the default AWS credential chain. endpoint overrides the S3 URL for S3-compatible stores.
func NewS3FileListing(ctx context.Context, bucket, region, endpoint string) (*S3FileListing, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket name required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3FileListing(client, bucket), nil
}

func newS3FileListing(client s3Lister, bucket string) *S3FileListing {
	return &S3FileListing{client: client, bucket: bucket, maxPages: 10}
}

// ListFiles pages through ListObjectsV2 for the bucket prefix.
func (l *S3FileListing) ListFiles(ctx context.Context, bucket domain.StorageBucket) ([]domain.StoredFile, error) {
	prefix := objectPrefix(bucket)
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(prefix),
	})
	files := make([]domain.StoredFile, 0)
	for page := 0; paginator.HasMorePages() && page < l.maxPages; page++ {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range out.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if key == "" {
				continue
			}
			file := domain.StoredFile{Key: key, SizeBytes: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				file.LastModified = obj.LastModified.UTC()
			}
			files = append(files, file)
		}
	}
	return files, nil
}

func objectPrefix(bucket domain.StorageBucket) string {
	return bucket.UserID + "/" + bucket.ID + "/"
}

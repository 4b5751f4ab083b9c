// Package configsource resolves the raw bytes behind a configuration path.
// A plain path is read from disk; an s3:// URI is fetched from AWS S3, so a
// fleet of gateways can share one configuration object without a local
// copy on every host.
package configsource

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

// Open returns the raw bytes at path, dispatching to S3 when path carries
// the s3:// scheme and to the local filesystem otherwise.
func Open(path string) ([]byte, error) {
	if !strings.HasPrefix(path, s3Scheme) {
		return os.ReadFile(path)
	}
	return fetchS3(context.Background(), path)
}

func fetchS3(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("configsource: loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("configsource: fetching s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

// parseS3URI splits "s3://bucket/key/with/slashes" into its bucket and key.
func parseS3URI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, s3Scheme)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("configsource: invalid s3 uri %q", uri)
	}
	return parts[0], parts[1], nil
}

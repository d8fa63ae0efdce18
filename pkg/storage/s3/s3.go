// Package s3 uploads backup artifacts to S3-compatible storage.
package s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
)

// Options configures the upload target. Credentials fall back to the
// standard AWS environment when AccessKey is empty.
type Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PathStyle bool
}

// Client wraps an S3 client bound to one bucket.
type Client struct {
	api  *s3.Client
	opts Options
}

// NewClient builds a client for the given target.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, dberrors.New(dberrors.KindValidation, "an S3 bucket is required for upload")
	}

	sdkOptions := []func(*awsconfig.LoadOptions) error{}
	if opts.AccessKey != "" {
		sdkOptions = append(sdkOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	if opts.Region != "" {
		sdkOptions = append(sdkOptions, awsconfig.WithRegion(opts.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, sdkOptions...)
	if err != nil {
		return nil, fmt.Errorf("AWS SDK config initialization error: %w", err)
	}

	clientOptions := []func(*s3.Options){
		func(o *s3.Options) {
			o.UsePathStyle = opts.PathStyle
			if opts.Endpoint != "" {
				o.BaseEndpoint = aws.String(opts.Endpoint)
			}
		},
	}

	return &Client{api: s3.NewFromConfig(awsCfg, clientOptions...), opts: opts}, nil
}

// Upload stores a local backup file under the configured prefix and
// returns the object key.
func (c *Client) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", dberrors.Wrap(dberrors.KindFileSystem, err, "cannot open backup for upload")
	}
	defer f.Close()

	key := filepath.Base(localPath)
	if c.opts.Prefix != "" {
		key = path.Join(strings.TrimSuffix(c.opts.Prefix, "/"), key)
	}

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.opts.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", dberrors.Classify(err).WithContext("bucket", c.opts.Bucket).
			WithSuggestions("verify the bucket name, region, and credentials")
	}

	logging.Logger.Infof("Uploaded %s to s3://%s/%s", filepath.Base(localPath), c.opts.Bucket, key)
	return key, nil
}

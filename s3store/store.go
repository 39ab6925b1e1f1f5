// Package s3store provides an S3-compatible object storage backend for
// itemgate, built on aws-sdk-go-v2. It works against AWS S3 as well as
// MinIO, Garage and other S3-compatible services via a custom endpoint.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"
	"github.com/sagarc03/itemgate"
)

const itemTypeMetaKey = "item-type"

// Client is the subset of *s3.Client the store uses.
type Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Config holds S3 connection settings.
type Config struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
	PathStyle bool   `mapstructure:"path_style"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Store implements itemgate.ObjectBackend on an S3 bucket.
type Store struct {
	client Client
	bucket string
	prefix string
}

// New constructs a Store from cfg. Without static keys the default AWS
// credential chain applies.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3store: bucket is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("s3store: region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3store: load config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			if !strings.Contains(endpoint, "://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient creates a Store over an existing client. Keys are stored
// under prefix, which may be empty.
func NewWithClient(client Client, bucket, prefix string) *Store {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) Put(ctx context.Context, key string, content io.Reader, meta itemgate.ObjectMeta) (itemgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return itemgate.ObjectInfo{}, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("s3store: read content: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if meta.ContentType != "" {
		input.ContentType = aws.String(meta.ContentType)
	}
	if meta.ItemType != "" {
		input.Metadata = map[string]string{itemTypeMetaKey: meta.ItemType}
	}

	resp, err := s.client.PutObject(ctx, input)
	if err != nil {
		return itemgate.ObjectInfo{}, classify(err, "put object")
	}

	return itemgate.ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ETag:        stripETag(aws.ToString(resp.ETag)),
		ContentType: meta.ContentType,
		ItemType:    meta.ItemType,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

func (s *Store) Get(ctx context.Context, key string) (itemgate.ObjectInfo, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return itemgate.ObjectInfo{}, nil, err
	}

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return itemgate.ObjectInfo{}, nil, classify(err, "get object")
	}

	info := itemgate.ObjectInfo{
		Key:         key,
		Size:        aws.ToInt64(resp.ContentLength),
		ETag:        stripETag(aws.ToString(resp.ETag)),
		ContentType: aws.ToString(resp.ContentType),
		ItemType:    resp.Metadata[itemTypeMetaKey],
		UpdatedAt:   aws.ToTime(resp.LastModified),
	}

	return info, resp.Body, nil
}

// List pages through ListObjectsV2 until every key under prefix is read.
// Listings carry no content type or item type.
func (s *Store) List(ctx context.Context, prefix string) ([]itemgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	}

	entries := []itemgate.ObjectInfo{}

	var token *string
	for {
		input.ContinuationToken = token
		resp, err := s.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, classify(err, "list objects")
		}

		for _, object := range resp.Contents {
			fullKey := aws.ToString(object.Key)
			key := strings.TrimPrefix(fullKey, s.prefix)
			if s.prefix != "" && key == fullKey {
				continue
			}
			entries = append(entries, itemgate.ObjectInfo{
				Key:       key,
				Size:      aws.ToInt64(object.Size),
				ETag:      stripETag(aws.ToString(object.ETag)),
				UpdatedAt: aws.ToTime(object.LastModified),
			})
		}

		if !aws.ToBool(resp.IsTruncated) {
			break
		}
		token = resp.NextContinuationToken
	}

	return entries, nil
}

// Delete removes key. S3 deletes are idempotent, so existence is checked
// first to report itemgate.ErrNotFound.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	objectKey := aws.String(s.objectKey(key))

	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    objectKey,
	}); err != nil {
		return classify(err, "head object")
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    objectKey,
	}); err != nil {
		return classify(err, "delete object")
	}

	return nil
}

func (s *Store) objectKey(key string) string {
	return s.prefix + key
}

func stripETag(etag string) string {
	return strings.Trim(etag, "\"")
}

// classify maps S3 failures onto the gateway's error taxonomy. Anything that
// is neither a missing key nor an access denial becomes a BackendFault that
// carries the service's status code and message.
func classify(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if isNotFound(err) {
		return fmt.Errorf("s3store: %s: %w", op, withMessage(itemgate.ErrNotFound, err))
	}

	if isAccessDenied(err) {
		return fmt.Errorf("s3store: %s: %w", op, withMessage(itemgate.ErrForbidden, err))
	}

	status, ok := httpStatusCode(err)
	if !ok {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		message = apiErr.ErrorMessage()
	}

	return itemgate.NewBackendFault(status, message)
}

// withMessage keeps the service's message alongside sentinel when it sent one.
func withMessage(sentinel, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		return &itemgate.BackendMessage{Err: sentinel, Message: apiErr.ErrorMessage()}
	}
	return sentinel
}

func httpStatusCode(err error) (int, bool) {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode(), true
	}
	var statusErr interface{ HTTPStatusCode() int }
	if errors.As(err, &statusErr) {
		return statusErr.HTTPStatusCode(), true
	}
	return 0, false
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	if status, ok := httpStatusCode(err); ok {
		return status == http.StatusNotFound && !isMissingBucket(err)
	}
	return false
}

func isMissingBucket(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden":
			return true
		}
	}
	if status, ok := httpStatusCode(err); ok {
		return status == http.StatusForbidden
	}
	return false
}

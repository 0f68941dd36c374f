package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	appconfig "objstore/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/transfermanager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

type s3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type s3Uploader interface {
	UploadObject(ctx context.Context, input *transfermanager.UploadObjectInput, optFns ...func(*transfermanager.Options)) (*transfermanager.UploadObjectOutput, error)
}

// S3Backend talks to AWS S3 or any S3-compatible endpoint.
type S3Backend struct {
	api      s3API
	uploader s3Uploader
}

func NewS3Backend(ctx context.Context, cfg appconfig.StoreConfig) (*S3Backend, error) {
	if cfg.Region == "" {
		return nil, errors.New("s3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	if cfg.RequestTimeout.Duration > 0 {
		opts = append(opts, awsconfig.WithHTTPClient(
			awshttp.NewBuildableClient().WithTimeout(cfg.RequestTimeout.Duration),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return &S3Backend{
		api:      client,
		uploader: transfermanager.New(client),
	}, nil
}

func (b *S3Backend) Put(ctx context.Context, bucket, key string, content []byte, contentType string) error {
	if b.uploader == nil {
		return newError(KindStore, errors.New("s3 uploader is not configured"))
	}

	_, err := b.uploader.UploadObject(ctx, &transfermanager.UploadObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return s3Error(err)
	}
	return nil
}

func (b *S3Backend) Get(ctx context.Context, bucket, key string) (*Object, error) {
	if b.api == nil {
		return nil, newError(KindStore, errors.New("s3 api client is not configured"))
	}

	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s3Error(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, newError(KindTransport, fmt.Errorf("read object body: %w", err))
	}

	return &Object{
		ObjectMetadata: ObjectMetadata{
			Key:          key,
			Size:         int64(len(data)),
			LastModified: aws.ToTime(out.LastModified),
			ETag:         aws.ToString(out.ETag),
			ContentType:  aws.ToString(out.ContentType),
		},
		Content: data,
	}, nil
}

func (b *S3Backend) Head(ctx context.Context, bucket, key string) (ObjectMetadata, error) {
	if b.api == nil {
		return ObjectMetadata{}, newError(KindStore, errors.New("s3 api client is not configured"))
	}

	out, err := b.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectMetadata{}, s3Error(err)
	}

	return ObjectMetadata{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         aws.ToString(out.ETag),
		ContentType:  aws.ToString(out.ContentType),
	}, nil
}

func (b *S3Backend) ListPage(ctx context.Context, bucket string, req ListRequest) (Page, error) {
	if b.api == nil {
		return Page{}, newError(KindStore, errors.New("s3 api client is not configured"))
	}
	prefix, token, err := resolveListRequest(req)
	if err != nil {
		return Page{}, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(clampInt32(req.MaxKeys)),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if token != "" {
		input.ContinuationToken = aws.String(token)
	}

	out, err := b.api.ListObjectsV2(ctx, input)
	if err != nil {
		return Page{}, s3Error(err)
	}

	page := Page{Objects: make([]ObjectMetadata, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		page.Objects = append(page.Objects, ObjectMetadata{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
		})
	}
	if next := aws.ToString(out.NextContinuationToken); next != "" {
		page.NextToken = encodeCursor(cursor{Prefix: prefix, Position: next})
	}
	return page, nil
}

func (b *S3Backend) Delete(ctx context.Context, bucket, key string) error {
	if b.api == nil {
		return newError(KindStore, errors.New("s3 api client is not configured"))
	}

	_, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s3Error(err)
	}
	return nil
}

// s3Error maps SDK failures onto ErrorKind. Typed S3 errors win over API
// codes, which win over bare HTTP status codes.
func s3Error(err error) error {
	var (
		noSuchKey    *types.NoSuchKey
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		return newError(KindNotFound, err)
	case errors.As(err, &noSuchBucket):
		return newError(KindBucketNotFound, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return newError(KindNotFound, err)
		case "NoSuchBucket":
			return newError(KindBucketNotFound, err)
		case "AccessDenied", "Forbidden", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return newError(KindPermission, err)
		case "InvalidArgument", "InvalidBucketName", "KeyTooLongError":
			return newError(KindValidation, err)
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return newError(KindNotFound, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return newError(KindPermission, err)
		}
		return newError(KindStore, err)
	}

	var sendErr *smithyhttp.RequestSendError
	if errors.As(err, &sendErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newError(KindTransport, err)
	}
	return newError(KindStore, err)
}

func clampInt32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(v)
}

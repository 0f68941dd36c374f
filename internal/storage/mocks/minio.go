package mocks

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
)

// MinioAPI is a mock implementation of storage.MinioAPI.
type MinioAPI struct {
	mock.Mock
}

func (m *MinioAPI) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, opts)
	return args.Get(0).(minio.UploadInfo), args.Error(1)
}

func (m *MinioAPI) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	info, _ := args.Get(1).(minio.ObjectInfo)
	if body, ok := args.Get(0).(io.ReadCloser); ok {
		return body, info, args.Error(2)
	}
	return nil, info, args.Error(2)
}

func (m *MinioAPI) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Get(0).(minio.ObjectInfo), args.Error(1)
}

func (m *MinioAPI) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	args := m.Called(ctx, bucketName, objectName, opts)
	return args.Error(0)
}

func (m *MinioAPI) ListObjectsV2(ctx context.Context, bucketName, prefix, continuationToken string, maxKeys int) (minio.ListBucketV2Result, error) {
	args := m.Called(ctx, bucketName, prefix, continuationToken, maxKeys)
	return args.Get(0).(minio.ListBucketV2Result), args.Error(1)
}

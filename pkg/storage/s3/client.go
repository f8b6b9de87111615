// Package s3 stores blobs in an S3 bucket using public object URLs.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fabrichouse/inventory-backend/pkg/config"
)

type objectAPI interface {
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

type Store struct {
	api     objectAPI
	bucket  string
	baseURL string
}

func New(ctx context.Context, storageCfg config.StorageConfig, awsCfg config.AWSConfig) (*Store, error) {
	if storageCfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 storage requires a bucket name")
	}
	if !awsCfg.HasCredentials() {
		return nil, fmt.Errorf("s3 storage requires aws credentials")
	}

	sdkCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(awsCfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsCfg.AccessKeyID, awsCfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &Store{
		api:     awss3.NewFromConfig(sdkCfg),
		bucket:  storageCfg.S3Bucket,
		baseURL: fmt.Sprintf("https://%s.s3.%s.amazonaws.com", storageCfg.S3Bucket, awsCfg.Region),
	}, nil
}

// NewWithAPI wires an explicit object API; used by tests.
func NewWithAPI(api objectAPI, bucket, baseURL string) *Store {
	return &Store{api: api, bucket: bucket, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *Store) Put(ctx context.Context, data []byte, folder, filename string) (string, error) {
	key := strings.Trim(folder, "/") + "/" + filename
	_, err := s.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %q: %w", key, err)
	}
	return s.baseURL + "/" + key, nil
}

func (s *Store) Fetch(ctx context.Context, url string) ([]byte, error) {
	key, err := s.key(url)
	if err != nil {
		return nil, err
	}
	out, err := s.api.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", key, err)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	key, err := s.key(url)
	if err != nil {
		return err
	}
	if _, err := s.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

func (s *Store) key(url string) (string, error) {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return "", fmt.Errorf("url %q does not belong to bucket %q", url, s.bucket)
	}
	key := strings.TrimPrefix(url, s.baseURL+"/")
	if key == "" {
		return "", fmt.Errorf("url %q has no object key", url)
	}
	return key, nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"time"
	"tush00nka/topovault/internal/config"
	"tush00nka/topovault/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3Service struct {
	config        *config.Config
	uploader      *manager.Uploader
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

func NewS3Service(cfg *config.Config) (*S3Service, error) {
	// Используем BaseEndpoint для кастомного endpoint
	s3Opts := []func(*s3.Options){}

	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true // Обязательно для MinIO
		})
	}

	var awsCfg aws.Config
	if cfg.S3AccessKeyID != "" {
		// Статические credentials из конфига
		awsCfg = aws.Config{
			Region: cfg.S3Region,
			Credentials: credentials.NewStaticCredentialsProvider(
				cfg.S3AccessKeyID,
				cfg.S3SecretAccessKey,
				"",
			),
		}
	} else {
		// Иначе стандартная цепочка провайдеров AWS
		loaded, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.S3Region),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		awsCfg = loaded
	}

	s3Client := s3.NewFromConfig(awsCfg, s3Opts...)

	service := &S3Service{
		config:        cfg,
		uploader:      manager.NewUploader(s3Client),
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}

	log.Printf("🔧 S3 service initialized with endpoint: %s", cfg.S3Endpoint)
	return service, nil
}

func (s *S3Service) Upload(ctx context.Context, key string, body io.Reader, contentType string, meta map[string]string) error {
	log.Printf("📤 Uploading object to %s/%s", s.config.S3BucketName, key)

	result, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", err)
	}

	log.Printf("✅ Object uploaded successfully: %s", result.Location)
	return nil
}

func (s *S3Service) Head(ctx context.Context, key string) (*model.ObjectHead, error) {
	out, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.config.S3BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head object %s: %w", key, err)
	}

	return &model.ObjectHead{
		Metadata:      out.Metadata,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
	}, nil
}

// ListAll collapses the paginated bucket listing into one slice.
func (s *S3Service) ListAll(ctx context.Context) ([]model.ObjectInfo, error) {
	var objects []model.ObjectInfo

	paginator := s3.NewListObjectsV2Paginator(s.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.config.S3BucketName),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, model.ObjectInfo{
				Key:  aws.ToString(obj.Key),
				Size: aws.ToInt64(obj.Size),
			})
		}
	}

	return objects, nil
}

// ReplaceMetadata копирует объект сам в себя с полной заменой метаданных.
// S3 не умеет менять заголовки на месте.
func (s *S3Service) ReplaceMetadata(ctx context.Context, key string, meta map[string]string) error {
	copySource := fmt.Sprintf("%s/%s", s.config.S3BucketName, url.PathEscape(key))

	_, err := s.s3Client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.config.S3BucketName),
		Key:               aws.String(key),
		CopySource:        aws.String(copySource),
		Metadata:          meta,
		MetadataDirective: types.MetadataDirectiveReplace,
	})
	if err != nil {
		return fmt.Errorf("failed to replace metadata for %s: %w", key, err)
	}

	return nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.S3BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	request, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3BucketName),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))

	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return request.URL, nil
}

func (s *S3Service) HealthCheck(ctx context.Context) error {
	// Простая проверка - пытаемся листовать bucket'ы
	_, err := s.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

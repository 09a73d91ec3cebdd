package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds its rule's limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrUnsupportedType is returned when the upload is not an allowed image type.
	ErrUnsupportedType = errors.New("unsupported file type")
)

// Rule describes where an upload kind is stored and how large it may be.
type Rule struct {
	Folder   string
	MaxBytes int64
}

// Upload kinds accepted by the API.
var (
	ProfileImage        = Rule{Folder: "avatars", MaxBytes: 5 * 1024 * 1024}
	CoverImage          = Rule{Folder: "covers", MaxBytes: 10 * 1024 * 1024}
	CertificateTemplate = Rule{Folder: "certificates", MaxBytes: 10 * 1024 * 1024}
)

// AllowedImageTypes maps accepted MIME types to file extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// File is a validated upload ready to be stored.
type File struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Validate checks size and type of a multipart upload. The size check runs
// before the body is read, so an oversized file never reaches storage.
func (r Rule) Validate(fh *multipart.FileHeader) (*File, error) {
	if fh.Size > r.MaxBytes {
		return nil, ErrFileTooLarge
	}
	declared := strings.ToLower(strings.TrimSpace(fh.Header.Get("Content-Type")))
	if _, ok := AllowedImageTypes[declared]; !ok {
		return nil, ErrUnsupportedType
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, r.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > r.MaxBytes {
		return nil, ErrFileTooLarge
	}
	sniffed := http.DetectContentType(data)
	ext, ok := AllowedImageTypes[sniffed]
	if !ok {
		return nil, ErrUnsupportedType
	}
	return &File{Data: data, ContentType: sniffed, Ext: ext}, nil
}

// Key returns a fresh object key: {folder}/{owner}/{uuid}{ext}.
func (r Rule) Key(owner string, ext string) string {
	return path.Join(r.Folder, owner, uuid.New().String()+ext)
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
	PublicBaseURL   string
}

// S3 stores uploaded images in one bucket.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client. Static credentials are used when configured,
// otherwise the default AWS credential chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "",
		)))
	} else {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Info("S3 storage ready", zap.String("region", cfg.Region), zap.String("bucket", cfg.Bucket))
	return &S3{
		client:   client,
		uploader: manager.NewUploader(client),
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// PublicURL returns the URL an object is served from.
func (s *S3) PublicURL(key string) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
}

// Put uploads a validated file under key and returns its public URL.
func (s *S3) Put(ctx context.Context, key string, f *File) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(f.Data),
		ContentType:   aws.String(f.ContentType),
		ContentLength: aws.Int64(int64(len(f.Data))),
		ACL:           types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return s.PublicURL(key), nil
}

// Get returns the object body. Caller must close it.
func (s *S3) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	return out.Body, nil
}

// Delete removes an object.
func (s *S3) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

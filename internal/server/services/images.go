package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
	"github.com/dmitrijs2005/tailorkeeper/internal/models"
	sc "github.com/dmitrijs2005/tailorkeeper/internal/server/config"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// OrderLookup finds an owner's order.
type OrderLookup interface {
	Get(ctx context.Context, userID string, t models.EntityType, id int64) (models.Canonical, error)
}

// ImageUpload is a presigned PUT for one order image.
type ImageUpload struct {
	UploadURL string
	ObjectURL string
	ExpiresAt time.Time
}

// ImageService hands out presigned S3 upload URLs for order images.
type ImageService struct {
	orders OrderLookup
	config *sc.Config
	now    func() time.Time
}

func NewImageService(orders OrderLookup, config *sc.Config) *ImageService {
	return &ImageService{orders: orders, config: config, now: time.Now}
}

// GetRandomStorageKey returns a fresh object key under orders/<date>/.
func GetRandomStorageKey(d time.Time) string {
	return fmt.Sprintf("orders/%d/%02d/%02d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ImageService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// objectURL is where a path-style endpoint serves key.
func (s *ImageService) objectURL(key string) string {
	return strings.TrimRight(s.config.S3BaseEndpoint, "/") + "/" + s.config.S3Bucket + "/" + key
}

// PresignOrderImage returns an upload URL for an image of the owner's order.
// The order must exist on the server.
func (s *ImageService) PresignOrderImage(ctx context.Context, userID string, orderID int64, contentType string) (ImageUpload, error) {
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return ImageUpload{}, fmt.Errorf("%w: content type %q is not an image", common.ErrValidation, contentType)
	}
	if _, err := s.orders.Get(ctx, userID, models.Orders, orderID); err != nil {
		return ImageUpload{}, err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return ImageUpload{}, err
	}

	bucket := s.config.S3Bucket
	now := s.now()
	key := GetRandomStorageKey(now)

	in := &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	req, err := presignPutObject(presignClient, ctx, in, s3.WithPresignExpires(s.config.PresignExpiry))
	if err != nil {
		return ImageUpload{}, err
	}

	return ImageUpload{
		UploadURL: req.URL,
		ObjectURL: s.objectURL(key),
		ExpiresAt: now.Add(s.config.PresignExpiry).UTC(),
	}, nil
}

package s3

import (
	"LivenessGolang/internal/entity"
	"bytes"
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// ItfS3 stores the frame that completed a verification so it can be reviewed
// later.
type ItfS3 interface {
	UploadSnapshot(ctx context.Context, sessionID string, frame *entity.Frame) (string, error)
	PresignUrl(key string) (string, error)
}

type Options struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type s3Client struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	bucketName string
}

func New(opts Options) (ItfS3, error) {
	sess, err := newSession(opts)
	if err != nil {
		return nil, err
	}

	return &s3Client{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		bucketName: opts.Bucket,
	}, nil
}

func (s *s3Client) UploadSnapshot(ctx context.Context, sessionID string, frame *entity.Frame) (string, error) {
	key := SnapshotKey(sessionID, frame.Format)

	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(frame.Data),
		ContentType: aws.String(frame.MIMEType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	return key, nil
}

func (s *s3Client) PresignUrl(key string) (string, error) {
	_, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("file does not exist: %w", err)
	}

	req, _ := s.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})

	urlStr, err := req.Presign(15 * time.Minute)
	if err != nil {
		return "", err
	}

	return urlStr, nil
}

func SnapshotKey(sessionID, format string) string {
	if format == "" {
		format = "jpeg"
	}
	return fmt.Sprintf("liveness/%s/%s.%s", time.Now().UTC().Format("2006/01/02"), sessionID, format)
}

func newSession(opts Options) (*session.Session, error) {
	cfg := &aws.Config{
		Region: aws.String(opts.Region),
		Credentials: credentials.NewStaticCredentials(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		),
	}
	if opts.Endpoint != "" {
		cfg.Endpoint = aws.String(opts.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

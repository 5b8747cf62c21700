package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"taskmaster-backend/shared/config"
	"taskmaster-backend/shared/utils/apperrors"
)

// AttachmentService stores task attachments in MinIO under
// org/<orgID>/tasks/<taskID>/<filename>. Tenant enforcement happens on
// the owning task before any call reaches this service.
type AttachmentService struct {
	client     *minio.Client
	bucketName string
}

func NewAttachmentService() (*AttachmentService, error) {
	cfg := config.GetConfig()

	log.Printf("🔗 Connecting to MinIO: %s (SSL: %v)", cfg.MinIOServerURL, cfg.MinIOUseSSL)

	minioClient, err := minio.New(cfg.MinIOServerURL, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %v", err)
	}

	service := &AttachmentService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
	}

	if err := service.initializeBucket(); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *AttachmentService) initializeBucket() error {
	ctx := context.Background()

	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %v", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %v", err)
		}
		log.Printf("✅ MinIO bucket '%s' created successfully", s.bucketName)
	}

	return nil
}

// AttachmentInfo describes one stored attachment
type AttachmentInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type"`
	LastModified time.Time `json:"last_modified"`
}

func (s *AttachmentService) objectKey(orgID, taskID uuid.UUID, filename string) string {
	return fmt.Sprintf("org/%s/tasks/%s/%s", orgID, taskID, filename)
}

func (s *AttachmentService) prefix(orgID, taskID uuid.UUID) string {
	return fmt.Sprintf("org/%s/tasks/%s/", orgID, taskID)
}

// sanitizeFilename strips path components from a client-supplied name
func sanitizeFilename(filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == ".." {
		return "", apperrors.InvalidInput("invalid attachment filename")
	}
	return name, nil
}

// Upload stores one attachment for a task
func (s *AttachmentService) Upload(ctx context.Context, orgID, taskID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (*AttachmentInfo, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}

	maxSize := config.GetConfig().AttachmentMaxFileSize
	if size > maxSize {
		return nil, apperrors.InvalidInput(fmt.Sprintf("attachment exceeds maximum size of %d bytes", maxSize))
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = s.client.PutObject(ctx, s.bucketName, s.objectKey(orgID, taskID, name), reader, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, apperrors.Internal("failed to store attachment", err)
	}

	return &AttachmentInfo{
		Name:         name,
		Size:         size,
		ContentType:  contentType,
		LastModified: time.Now(),
	}, nil
}

// List returns the attachments stored for a task
func (s *AttachmentService) List(ctx context.Context, orgID, taskID uuid.UUID) ([]AttachmentInfo, error) {
	prefix := s.prefix(orgID, taskID)
	objectCh := s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	attachments := []AttachmentInfo{}
	for object := range objectCh {
		if object.Err != nil {
			return nil, apperrors.Internal("failed to list attachments", object.Err)
		}
		attachments = append(attachments, AttachmentInfo{
			Name:         strings.TrimPrefix(object.Key, prefix),
			Size:         object.Size,
			ContentType:  object.ContentType,
			LastModified: object.LastModified,
		})
	}
	return attachments, nil
}

// Download opens one attachment for reading. The caller closes the
// returned reader.
func (s *AttachmentService) Download(ctx context.Context, orgID, taskID uuid.UUID, filename string) (io.ReadCloser, *AttachmentInfo, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, nil, err
	}

	key := s.objectKey(orgID, taskID, name)
	stat, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return nil, nil, apperrors.NotFound("attachment not found")
		}
		return nil, nil, apperrors.Internal("failed to stat attachment", err)
	}

	object, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, apperrors.Internal("failed to open attachment", err)
	}

	return object, &AttachmentInfo{
		Name:         name,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
	}, nil
}

// Delete removes one attachment
func (s *AttachmentService) Delete(ctx context.Context, orgID, taskID uuid.UUID, filename string) error {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return err
	}

	key := s.objectKey(orgID, taskID, name)
	if _, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{}); err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return apperrors.NotFound("attachment not found")
		}
		return apperrors.Internal("failed to stat attachment", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.Internal("failed to delete attachment", err)
	}
	return nil
}

// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agnarsw/cellar-backend/internal/config"
)

const labelFolder = "wine-labels"

// StorageService persists label photos. With AWS credentials configured it
// writes to S3 (served via CloudFront when a distribution is set); without
// them it writes to the local uploads directory that the router serves under
// /static/uploads.
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

// SavedImage is the stored location of a label photo. Path is the reference
// kept on the wine record (a relative uploads path locally, a full URL on
// S3); Key is the S3 object key, empty for local files.
type SavedImage struct {
	Path string `json:"path"`
	Key  string `json:"key,omitempty"`
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" {
		// Return service without S3 for local storage
		return &StorageService{config: config}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// UsesS3 reports whether label images go to S3 rather than local disk.
func (s *StorageService) UsesS3() bool {
	return s.s3Client != nil
}

// AllowedFile reports whether the filename carries an accepted image
// extension.
func (s *StorageService) AllowedFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

func (s *StorageService) SaveLabelImage(content []byte, originalFilename string) (*SavedImage, error) {
	if !s.AllowedFile(originalFilename) {
		return nil, fmt.Errorf("file type %s is not allowed", filepath.Ext(originalFilename))
	}

	if max := s.config.Upload.MaxSize; max > 0 && int64(len(content)) > max {
		return nil, fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", len(content), max)
	}

	filename := s.generateFileName(originalFilename)

	if s.s3Client != nil {
		return s.uploadToS3(content, filename, MediaTypeForFilename(originalFilename))
	}
	return s.saveToLocal(content, filename)
}

func (s *StorageService) uploadToS3(content []byte, filename, contentType string) (*SavedImage, error) {
	key := labelFolder + "/" + filename

	_, err := s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &SavedImage{
		Path: s.getS3URL(key),
		Key:  key,
	}, nil
}

func (s *StorageService) saveToLocal(content []byte, filename string) (*SavedImage, error) {
	if err := os.MkdirAll(s.config.Upload.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	fullPath := filepath.Join(s.config.Upload.Dir, filename)
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	// Relative reference; the router serves the uploads dir at /static/uploads
	return &SavedImage{Path: "uploads/" + filename}, nil
}

// DeleteLabelImage removes a stored label photo. Deletion is best-effort:
// failures are logged and never propagated, a missing image must not block
// deleting or replacing the wine itself.
func (s *StorageService) DeleteLabelImage(path, key string) {
	if s.s3Client != nil {
		if key == "" {
			return
		}
		_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(s.config.AWS.S3Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to delete label image from S3")
		}
		return
	}

	if path == "" {
		return
	}
	fullPath := filepath.Join(s.config.Upload.Dir, filepath.Base(path))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", fullPath).Warn("Failed to delete local label image")
	}
}

func (s *StorageService) generateFileName(originalName string) string {
	// Generate UUID for uniqueness
	id := uuid.New()

	// Get file extension
	ext := strings.ToLower(filepath.Ext(originalName))

	// Create filename with timestamp and UUID
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/phambaophuc/watermark-tool/internal/models"
	"github.com/phambaophuc/watermark-tool/internal/services/processor"
	"github.com/phambaophuc/watermark-tool/pkg/utils"
)

var ErrArchiveDisabled = errors.New("supabase storage is not configured")

// Upload uploads file to Supabase Storage and returns its public URL.
func (s *StorageService) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	if s.sbClient == nil {
		return "", ErrArchiveDisabled
	}
	if !utils.IsValidImageType(contentType) {
		return "", fmt.Errorf("refusing to upload content type %q", contentType)
	}

	key := utils.GenerateStorageKey(filename)

	_, err := s.sbClient.UploadFile(s.bucket, key, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	publicURL := s.sbClient.GetPublicUrl(s.bucket, key)
	return publicURL.SignedURL, nil
}

// ArchiveResult uploads the image carried by a successful result.
func (s *StorageService) ArchiveResult(ctx context.Context, result *models.CompositeResult) (string, error) {
	if !result.Succeeded() {
		return "", fmt.Errorf("only successful results can be archived")
	}

	data, contentType, err := processor.DataURIPayload(result.Output.ImageURI)
	if err != nil {
		return "", fmt.Errorf("failed to read output image: %w", err)
	}

	filename := utils.GenerateFilename(result.MessageID, utils.ExtensionForContentType(contentType))
	return s.Upload(ctx, data, filename, contentType)
}

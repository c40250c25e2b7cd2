package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IsValidImageType checks if content type is a valid image type
func IsValidImageType(contentType string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
		"image/tiff",
	}

	ct := strings.ToLower(contentType)
	for _, validType := range validTypes {
		if strings.Contains(ct, validType) {
			return true
		}
	}
	return false
}

// ExtensionForContentType maps an image MIME type to a file extension,
// defaulting to png.
func ExtensionForContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(ct, "image/") {
		return "png"
	}

	switch ext := strings.TrimPrefix(ct, "image/"); ext {
	case "jpeg", "jpg":
		return "jpg"
	case "":
		return "png"
	default:
		return ext
	}
}

// GenerateFilename generates a unique filename for a watermarked image
func GenerateFilename(messageID, format string) string {
	timestamp := time.Now().Unix()
	if format == "" {
		format = "png"
	}
	return fmt.Sprintf("watermarked_%s_%d.%s", messageID, timestamp, format)
}

func GenerateStorageKey(filename string) string {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filename, ext)
	timestamp := time.Now().Unix()
	uuid := uuid.New().String()[:8]

	return fmt.Sprintf("watermarked/%s_%d_%s%s", name, timestamp, uuid, ext)
}

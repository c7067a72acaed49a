package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"

	"commune/internal/middleware"
	"commune/internal/models"
	"commune/internal/observability"

	"golang.org/x/image/draw"
)

const thumbnailSize = 256

// UploadService stores post images on local disk under content-hash names
// and renders a small thumbnail next to each accepted image.
type UploadService struct {
	dir      string
	maxBytes int
}

func NewUploadService(dir string, maxMB int) (*UploadService, error) {
	if err := os.MkdirAll(filepath.Join(dir, "thumbs"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &UploadService{dir: dir, maxBytes: maxMB * 1024 * 1024}, nil
}

// SaveImage validates and persists one uploaded image. Only PNG and JPEG are
// accepted; the type is sniffed from content, and a declared content type
// that contradicts the sniff is rejected. Returns the public image URL.
func (s *UploadService) SaveImage(ctx context.Context, data []byte, declaredType string) (string, error) {
	if len(data) == 0 {
		observability.UploadsRejected.WithLabelValues("empty").Inc()
		return "", models.NewValidationError("invalid_request")
	}
	if s.maxBytes > 0 && len(data) > s.maxBytes {
		observability.UploadsRejected.WithLabelValues("too_large").Inc()
		return "", models.NewValidationError("invalid_request")
	}

	sniffed := http.DetectContentType(data)
	var ext string
	switch sniffed {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	default:
		observability.UploadsRejected.WithLabelValues("type").Inc()
		return "", models.NewUnsupportedMediaError()
	}

	// Clients sometimes omit the part content type or send octet-stream;
	// only an outright contradiction is rejected.
	if declaredType != "" && declaredType != "application/octet-stream" && declaredType != sniffed {
		observability.UploadsRejected.WithLabelValues("type_mismatch").Inc()
		return "", models.NewUnsupportedMediaError()
	}

	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:]) + "." + ext
	dest := filepath.Join(s.dir, name)

	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return "", models.NewInternalError(err)
		}
		s.writeThumbnail(ctx, data, name, ext)
	}

	observability.UploadsTotal.WithLabelValues(ext).Inc()
	return "/uploads/" + name, nil
}

// writeThumbnail renders a bounded-size preview. Thumbnail failures are
// logged only; the original upload already succeeded.
func (s *UploadService) writeThumbnail(ctx context.Context, data []byte, name, ext string) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail decode failed", "file", name, "error", err)
		return
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= thumbnailSize && h <= thumbnailSize {
		return
	}
	if w > h {
		h = h * thumbnailSize / w
		w = thumbnailSize
	} else {
		w = w * thumbnailSize / h
		h = thumbnailSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch ext {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail encode failed", "file", name, "error", err)
		return
	}

	thumbPath := filepath.Join(s.dir, "thumbs", name)
	if err := os.WriteFile(thumbPath, buf.Bytes(), 0o644); err != nil {
		middleware.Logger.WarnContext(ctx, "thumbnail write failed", "file", name, "error", err)
	}
}

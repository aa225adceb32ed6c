package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"shortlist/internal/apierr"
	"shortlist/internal/logger"
)

const (
	MaxImageBytes   = 10 << 20
	ImageURLPrefix  = "/images/"
	imageFetchLimit = 20 * time.Second
)

var allowedImageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

var ErrImageTooLarge = errors.New("image exceeds 10MB")

// ImageStore keeps property images on local disk and serves them under
// ImageURLPrefix.
type ImageStore struct {
	log    *logger.Logger
	dir    string
	client *http.Client
}

func NewImageStore(log *logger.Logger, dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &ImageStore{
		log:    log.With("service", "ImageStore"),
		dir:    dir,
		client: &http.Client{Timeout: imageFetchLimit},
	}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

// Save writes r under a fresh file name and returns its public path.
// name only contributes the extension.
func (s *ImageStore) Save(name string, r io.Reader) (string, error) {
	return s.save(extFromName(name, ""), r)
}

func (s *ImageStore) save(ext string, r io.Reader) (string, error) {
	fileName := uuid.NewString() + ext
	path := filepath.Join(s.dir, fileName)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, MaxImageBytes+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > MaxImageBytes {
		err = apierr.Validation(ErrImageTooLarge)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return ImageURLPrefix + fileName, nil
}

// Mirror downloads a remote image and stores a local copy.
func (s *ImageStore) Mirror(ctx context.Context, remoteURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch image: HTTP %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("fetch image: unexpected content type %q", contentType)
	}
	if resp.ContentLength > MaxImageBytes {
		return "", ErrImageTooLarge
	}

	return s.save(extFromName(remoteURL, contentType), resp.Body)
}

// extFromName picks the file extension from the name, falling back to the
// MIME type and finally ".jpg".
func extFromName(name, contentType string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.ToLower(filepath.Ext(name))
	if allowedImageExts[ext] {
		return ext
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

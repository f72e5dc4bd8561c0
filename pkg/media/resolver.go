// Package media re-hosts remote media on the job engine so graphs can
// reference it by local name.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	// FallbackExtension is used when the URL path has no extension.
	FallbackExtension = ".jpg"
	// FallbackContentType is used for extensions with no known MIME type.
	FallbackContentType = "application/octet-stream"
)

var (
	ErrDownloadFailed = errors.New("media download failed")
	ErrUploadFailed   = errors.New("media upload failed")
)

// IsRemote reports whether a bound value is a locator the resolver handles.
func IsRemote(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}

// Uploader ingests media into the engine's input store.
type Uploader interface {
	UploadImage(ctx context.Context, filename, contentType string, content io.Reader) (string, error)
}

// Recorder observes upload outcomes.
type Recorder interface {
	ObserveMediaUpload(result string)
}

type Resolver struct {
	uploader   Uploader
	httpClient *http.Client
	tempDir    string
	recorder   Recorder
	logger     *slog.Logger
}

type Option func(*Resolver)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(r *Resolver) { r.httpClient = httpClient }
}

// WithTempDir sets where downloads are staged. Empty means os.TempDir.
func WithTempDir(dir string) Option {
	return func(r *Resolver) { r.tempDir = dir }
}

func WithRecorder(recorder Recorder) Option {
	return func(r *Resolver) { r.recorder = recorder }
}

func NewResolver(uploader Uploader, logger *slog.Logger, opts ...Option) *Resolver {
	resolver := &Resolver{
		uploader:   uploader,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     logger.With("module", "media_resolver"),
	}

	for _, opt := range opts {
		opt(resolver)
	}

	return resolver
}

// Resolve downloads remoteURL to a temporary file, uploads it to the engine
// and returns the engine's reference name. The temporary file is removed on
// every path.
func (r *Resolver) Resolve(ctx context.Context, remoteURL string) (string, error) {
	name, err := r.resolve(ctx, remoteURL)

	switch {
	case err == nil:
		r.observe("success")
	case errors.Is(err, ErrDownloadFailed):
		r.observe("download_failed")
	default:
		r.observe("upload_failed")
	}

	return name, err
}

func (r *Resolver) resolve(ctx context.Context, remoteURL string) (string, error) {
	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url '%s': %v", ErrDownloadFailed, remoteURL, err)
	}

	extension := Extension(parsed.Path)

	tmp, err := os.CreateTemp(r.tempDir, "oneapi-media-*"+extension)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", ErrDownloadFailed, err)
	}

	defer func() {
		_ = tmp.Close()

		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			r.logger.WarnContext(ctx, "Failed to remove temporary media file", "path", tmp.Name(), "error", err)
		}
	}()

	if err := r.download(ctx, remoteURL, tmp); err != nil {
		return "", err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	filename := filepath.Base(tmp.Name())

	name, err := r.uploader.UploadImage(ctx, filename, ContentType(extension), tmp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	r.logger.InfoContext(ctx, "Media uploaded", "url", remoteURL, "name", name)

	return name, nil
}

func (r *Resolver) download(ctx context.Context, remoteURL string, dst io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}

	return nil
}

func (r *Resolver) observe(result string) {
	if r.recorder != nil {
		r.recorder.ObserveMediaUpload(result)
	}
}

// Extension returns the extension of a URL path as written, or
// FallbackExtension when there is none.
func Extension(urlPath string) string {
	if ext := path.Ext(path.Base(urlPath)); ext != "" && ext != "." {
		return ext
	}

	return FallbackExtension
}

// mediaTypes covers the media extensions engines commonly ingest, which the
// platform MIME table does not always know.
var mediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".m4a":  "audio/mp4",
	".wma":  "audio/x-ms-wma",
	".opus": "audio/opus",
}

// ContentType maps an extension to a MIME type.
func ContentType(extension string) string {
	extension = strings.ToLower(extension)

	if contentType, ok := mediaTypes[extension]; ok {
		return contentType
	}

	if contentType := mime.TypeByExtension(extension); contentType != "" {
		return contentType
	}

	return FallbackContentType
}

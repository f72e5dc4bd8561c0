package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	filename    string
	contentType string
	content     string
	name        string
	err         error
}

func (u *recordingUploader) UploadImage(_ context.Context, filename, contentType string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}

	u.filename = filename
	u.contentType = contentType
	u.content = string(data)

	return u.name, u.err
}

type countingRecorder struct {
	results []string
}

func (c *countingRecorder) ObserveMediaUpload(result string) {
	c.results = append(c.results, result)
}

func mediaServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte("media-bytes"))
	}))
	t.Cleanup(server.Close)

	return server
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	server := mediaServer(t)
	dir := t.TempDir()
	uploader := &recordingUploader{name: "uploaded.png"}
	recorder := &countingRecorder{}

	resolver := NewResolver(uploader, slog.Default(), WithTempDir(dir), WithRecorder(recorder))

	name, err := resolver.Resolve(t.Context(), server.URL+"/images/cat.png?token=abc")
	require.NoError(t, err)
	assert.Equal(t, "uploaded.png", name)

	assert.Equal(t, "media-bytes", uploader.content)
	assert.Equal(t, "image/png", uploader.contentType)
	assert.True(t, strings.HasPrefix(uploader.filename, "oneapi-media-"))
	assert.True(t, strings.HasSuffix(uploader.filename, ".png"))
	assert.Equal(t, []string{"success"}, recorder.results)

	assertEmptyDir(t, dir)
}

func TestResolver_DownloadFailed(t *testing.T) {
	t.Parallel()

	server := mediaServer(t)
	dir := t.TempDir()
	uploader := &recordingUploader{}
	recorder := &countingRecorder{}

	_, err := NewResolver(uploader, slog.Default(), WithTempDir(dir), WithRecorder(recorder)).
		Resolve(t.Context(), server.URL+"/missing.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDownloadFailed)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Empty(t, uploader.filename)
	assert.Equal(t, []string{"download_failed"}, recorder.results)

	assertEmptyDir(t, dir)
}

func TestResolver_UploadFailed(t *testing.T) {
	t.Parallel()

	server := mediaServer(t)
	dir := t.TempDir()
	uploader := &recordingUploader{err: errors.New("HTTP 500")}

	_, err := NewResolver(uploader, slog.Default(), WithTempDir(dir)).Resolve(t.Context(), server.URL+"/clip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.False(t, errors.Is(err, ErrDownloadFailed))
	assert.True(t, strings.HasSuffix(uploader.filename, FallbackExtension))
	assert.Equal(t, "image/jpeg", uploader.contentType)

	assertEmptyDir(t, dir)
}

func TestExtensionAndContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path        string
		extension   string
		contentType string
	}{
		{path: "/a/b/clip.mp4", extension: ".mp4", contentType: "video/mp4"},
		{path: "/voice.WAV", extension: ".WAV", contentType: "audio/wav"},
		{path: "/", extension: ".jpg", contentType: "image/jpeg"},
		{path: "", extension: ".jpg", contentType: "image/jpeg"},
		{path: "/download", extension: ".jpg", contentType: "image/jpeg"},
		{path: "/file.unknownext", extension: ".unknownext", contentType: FallbackContentType},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()

			extension := Extension(tt.path)
			assert.Equal(t, tt.extension, extension)
			assert.True(t, strings.HasPrefix(ContentType(extension), tt.contentType))
		})
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRemote("https://example.com/a.png"))
	assert.True(t, IsRemote("http://example.com/a.png"))
	assert.False(t, IsRemote("example.png"))
	assert.False(t, IsRemote("ftp://example.com/a.png"))
}

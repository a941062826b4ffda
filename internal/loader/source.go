package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vincent-petithory/dataurl"
)

// maxFetchBytes bounds remote and local reads.
const maxFetchBytes = 512 << 20

// source is the raw content behind a reference.
type source struct {
	data      []byte
	mediaType string
}

// Fetcher reads the bytes behind a source reference.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, string, error)
}

// DefaultFetcher resolves data:, file:, http(s): and bare path references.
type DefaultFetcher struct {
	Client  *http.Client
	Timeout time.Duration
	// BaseDir resolves relative paths. Empty means the working directory.
	BaseDir string
	// MaxBytes caps the size of a fetched source. Zero means 512 MiB.
	MaxBytes int64
}

func (f *DefaultFetcher) limit() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return maxFetchBytes
}

// readLimited reads all of r, failing with ErrSourceTooLarge rather than
// truncating when r holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: over %d bytes", ErrSourceTooLarge, limit)
	}
	return data, nil
}

// Fetch returns the bytes and media type behind src.
func (f *DefaultFetcher) Fetch(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, "", ErrEmptySource
	}

	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return f.fetchHTTP(ctx, src)
	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, "", fmt.Errorf("parse file url: %w", err)
		}
		return f.readFile(u.Path)
	case strings.Contains(src, "://"):
		return nil, "", ErrUnsupportedSource
	default:
		return f.readFile(src)
	}
}

func decodeDataURL(src string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(src)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return du.Data, du.MediaType.ContentType(), nil
}

func (f *DefaultFetcher) fetchHTTP(ctx context.Context, src string) ([]byte, string, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
	data, err := readLimited(resp.Body, f.limit())
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (f *DefaultFetcher) readFile(path string) ([]byte, string, error) {
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}
	data, err := readFileLimited(path, f.limit())
	if err != nil {
		return nil, "", err
	}
	return data, mediaTypeFor(path, data), nil
}

func readFileLimited(path string, limit int64) ([]byte, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := readLimited(file, limit)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// mediaTypeFor guesses a media type from the extension, falling back to
// content sniffing.
func mediaTypeFor(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	}
	return http.DetectContentType(data)
}

// EncodeDataURL turns a file into a durable data: reference suitable for
// storing on an element. Files over 512 MiB are rejected.
func EncodeDataURL(path string) (string, error) {
	return encodeFile(path, maxFetchBytes)
}

func encodeFile(path string, limit int64) (string, error) {
	data, err := readFileLimited(path, limit)
	if err != nil {
		return "", err
	}
	return EncodeBytes(data, mediaTypeFor(path, data)), nil
}

// EncodeBytes wraps raw bytes in a base64 data: URL.
func EncodeBytes(data []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	// DetectContentType may append parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return dataurl.New(data, mediaType).String()
}

// Durable returns src unchanged when it is already a data: or http(s):
// reference, and otherwise reads the local file into a data: URL.
func Durable(src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", ErrEmptySource
	}
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "data:"),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"):
		return src, nil
	case strings.HasPrefix(lower, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return "", fmt.Errorf("parse file url: %w", err)
		}
		return EncodeDataURL(u.Path)
	}
	return EncodeDataURL(src)
}

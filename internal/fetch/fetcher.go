package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// ErrTooLarge is returned when a response body exceeds the configured cap.
var ErrTooLarge = errors.New("response body too large")

// knownSuffixes are the image extensions passed through to the temp file
// name; anything else falls back to ".jpg".
var knownSuffixes = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".webp": {},
}

// Fetcher downloads remote images to transient local files.
type Fetcher struct {
	client       *http.Client
	dir          string // temp directory; "" means the system default
	maxBodyBytes int64
}

// New creates a Fetcher. maxBodyBytes bounds the downloaded size; zero
// disables the cap.
func New(timeout time.Duration, maxBodyBytes int64, dir string) *Fetcher {
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		dir:          dir,
		maxBodyBytes: maxBodyBytes,
	}
}

// Fetch downloads the resource at rawURL into a temp file and returns its
// path. The caller owns the file and must remove it on every exit path.
// On any failure the partially written file is removed; Fetch never leaves
// an orphaned temp file behind.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.dir, "vton-*"+suffixFor(rawURL))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.maxBodyBytes+1)
	}

	// io.Copy streams in bounded chunks, so peak memory stays constant
	// regardless of image size.
	n, err := io.Copy(tmp, body)
	if err == nil && f.maxBodyBytes > 0 && n > f.maxBodyBytes {
		err = ErrTooLarge
	}
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write %s: %w", rawURL, err)
	}

	return tmp.Name(), nil
}

// suffixFor infers a file suffix from the URL path.
func suffixFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if _, ok := knownSuffixes[ext]; ok {
		return ext
	}

	return ".jpg"
}

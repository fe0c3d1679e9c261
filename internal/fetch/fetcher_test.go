package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestFetcher(t *testing.T, maxBody int64) (*Fetcher, string) {
	t.Helper()
	dir := t.TempDir()
	return New(5*time.Second, maxBody, dir), dir
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestFetch_Success(t *testing.T) {
	payload := []byte("fake image bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	f, dir := newTestFetcher(t, 0)

	path, err := f.Fetch(context.Background(), srv.URL+"/images/person.png")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer os.Remove(path)

	if filepath.Ext(path) != ".png" {
		t.Fatalf("expected .png suffix, got %s", path)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("fetched content mismatch: got %q", got)
	}

	if n := len(tempFiles(t, dir)); n != 1 {
		t.Fatalf("expected exactly one temp file, found %d", n)
	}
}

func TestFetch_UnknownExtensionDefaultsToJPG(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, 0)

	for _, u := range []string{srv.URL + "/file=abc123", srv.URL + "/image.tiff"} {
		path, err := f.Fetch(context.Background(), u)
		if err != nil {
			t.Fatalf("fetch %s: %v", u, err)
		}
		if !strings.HasSuffix(path, ".jpg") {
			t.Fatalf("expected .jpg fallback for %s, got %s", u, path)
		}
		_ = os.Remove(path)
	}
}

func TestFetch_NonSuccessStatusLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f, dir := newTestFetcher(t, 0)

	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.jpg"); err == nil {
		t.Fatal("expected error on 404")
	}

	if files := tempFiles(t, dir); len(files) != 0 {
		t.Fatalf("orphaned temp files after failure: %v", files)
	}
}

func TestFetch_TransportErrorLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refused connection

	f, dir := newTestFetcher(t, 0)

	if _, err := f.Fetch(context.Background(), srv.URL+"/p.jpg"); err == nil {
		t.Fatal("expected transport error")
	}

	if files := tempFiles(t, dir); len(files) != 0 {
		t.Fatalf("orphaned temp files after failure: %v", files)
	}
}

func TestFetch_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), 64))
	}))
	defer srv.Close()

	f, dir := newTestFetcher(t, 16)

	if _, err := f.Fetch(context.Background(), srv.URL+"/big.jpg"); err == nil {
		t.Fatal("expected error for oversized body")
	}

	if files := tempFiles(t, dir); len(files) != 0 {
		t.Fatalf("orphaned temp files after failure: %v", files)
	}
}

package resources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/procbridge/webgate/internal/config"
)

func TestBuildStaticResponse(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "index.html")
	if err := os.WriteFile(indexPath, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	notFoundPath := filepath.Join(dir, "404.html")
	if err := os.WriteFile(notFoundPath, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Server:       "webgate/1.0",
		NotFoundPath: notFoundPath,
		Files: map[string]config.FileEntry{
			"/": {Path: indexPath, MIME: "text/html"},
		},
	}

	set, err := Build(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, ok := set.Lookup("/")
	if !ok {
		t.Fatal("expected / to be preloaded")
	}
	want := "HTTP/1.1 200 OK\r\nContent-Length: 2\r\nContent-Type: text/html\r\nServer: webgate/1.0\r\n\r\nhi"
	if string(resp) != want {
		t.Errorf("got %q, want %q", resp, want)
	}

	nf := set.NotFound()
	if !strings.Contains(string(nf), "404 NOT FOUND") || !strings.HasSuffix(string(nf), "nope") {
		t.Errorf("unexpected not-found response: %q", nf)
	}
}

func TestBuildMissingFileIsFatal(t *testing.T) {
	cfg := &config.Config{
		Server:       "webgate/1.0",
		NotFoundPath: "/nonexistent/404.html",
		Files:        map[string]config.FileEntry{},
	}
	if _, err := Build(cfg); err == nil {
		t.Fatal("expected an error for a missing 404 body")
	} else if !strings.HasPrefix(err.Error(), "http:") {
		t.Errorf("expected error prefixed http:, got %q", err.Error())
	}
}

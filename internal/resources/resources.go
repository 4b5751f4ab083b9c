// Package resources preloads every configured static file into a
// fully-materialized HTTP response, once at startup, so the hot path never
// touches disk. The resulting Set is read-only and shared by every HTTP
// session.
package resources

import (
	"bytes"
	"fmt"
	"os"

	"github.com/procbridge/webgate/internal/config"
)

// Set is the immutable, startup-built table of canned HTTP responses: one
// per configured static file, plus the 404 response.
type Set struct {
	byPath   map[string][]byte
	notFound []byte
}

// Build reads every file named in cfg.Files and the 404 body, wrapping each
// in its final response bytes. A missing file is a fatal startup error
// prefixed "http:".
func Build(cfg *config.Config) (*Set, error) {
	byPath := make(map[string][]byte, len(cfg.Files))
	for urlPath, entry := range cfg.Files {
		body, err := os.ReadFile(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("http: could not read %s: %w", entry.Path, err)
		}
		byPath[urlPath] = buildResponse("200 OK", body, entry.MIME, cfg.Server)
	}

	notFoundBody, err := os.ReadFile(cfg.NotFoundPath)
	if err != nil {
		return nil, fmt.Errorf("http: could not read %s: %w", cfg.NotFoundPath, err)
	}

	return &Set{
		byPath:   byPath,
		notFound: buildResponse("404 NOT FOUND", notFoundBody, "text/html", cfg.Server),
	}, nil
}

func buildResponse(status string, body []byte, mime, server string) []byte {
	var b bytes.Buffer
	b.Grow(len(body) + 128)
	fmt.Fprintf(&b, "HTTP/1.1 %s\r\n", status)
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	fmt.Fprintf(&b, "Content-Type: %s\r\n", mime)
	fmt.Fprintf(&b, "Server: %s\r\n", server)
	b.WriteString("\r\n")
	b.Write(body)
	return b.Bytes()
}

// Lookup returns the preloaded response bytes for an exact URL path match.
func (s *Set) Lookup(path string) ([]byte, bool) {
	resp, ok := s.byPath[path]
	return resp, ok
}

// NotFound returns the preloaded 404 response.
func (s *Set) NotFound() []byte {
	return s.notFound
}

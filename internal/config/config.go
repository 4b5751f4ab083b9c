// Package config loads the gateway's process-wide configuration: the
// listen address, HTTP server banner, static resource tables, and the
// path-to-command map that drives WebSocket upgrades. The loaded Config is
// immutable and safe to share read-only across every session.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/procbridge/webgate/internal/configsource"
)

// FileEntry is a static resource: the filesystem path to preload and the
// MIME type to serve it with.
type FileEntry struct {
	Path string
	MIME string
}

// CommandEntry is a spawn target: an executable and its argument list.
type CommandEntry struct {
	Executable string
	Args       []string
}

// Config is the immutable, process-wide configuration consumed by the
// reactor's sessions. It is constructed once at startup and never mutated.
type Config struct {
	Address      string
	Server       string
	NotFoundPath string
	Files        map[string]FileEntry
	Directories  map[string]FileEntry
	Commands     map[string]CommandEntry

	// AdminAddr, if non-empty, is the address the metrics/health admin
	// server listens on. Empty disables it. This is the one field with no
	// counterpart in the original schema.
	AdminAddr string
}

// Load reads and validates the configuration file at path. path may be a
// plain filesystem path or an s3:// URI (see internal/configsource). Any
// missing top-level key or type mismatch is a fatal startup error, reported
// with a message prefixed "cfg:".
func Load(path string) (*Config, error) {
	raw, err := configsource.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cfg: could not read file: %w", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("cfg: file must represent an object: %w", err)
	}

	cfg := &Config{}

	if cfg.Address, err = getString(top, "address"); err != nil {
		return nil, err
	}
	if cfg.Server, err = getString(top, "server"); err != nil {
		return nil, err
	}
	if cfg.NotFoundPath, err = getString(top, "not_found"); err != nil {
		return nil, err
	}
	if cfg.Files, err = getResourceMap(top, "files"); err != nil {
		return nil, err
	}
	// directories is parsed identically to files but, per the original
	// gateway, never consulted by the router. See DESIGN.md.
	if cfg.Directories, err = getResourceMap(top, "directories"); err != nil {
		return nil, err
	}
	if cfg.Commands, err = getCommandMap(top, "commands"); err != nil {
		return nil, err
	}
	if raw, ok := top["admin"]; ok {
		if err := json.Unmarshal(raw, &cfg.AdminAddr); err != nil {
			return nil, fmt.Errorf("cfg: `admin` must be a string")
		}
	}

	return cfg, nil
}

func getString(top map[string]json.RawMessage, key string) (string, error) {
	raw, ok := top[key]
	if !ok {
		return "", fmt.Errorf("cfg: missing `%s` property", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("cfg: `%s` must contain a string", key)
	}
	return s, nil
}

func getResourceMap(top map[string]json.RawMessage, key string) (map[string]FileEntry, error) {
	raw, ok := top[key]
	if !ok {
		return nil, fmt.Errorf("cfg: missing `%s` property", key)
	}
	var assocs map[string][]string
	if err := json.Unmarshal(raw, &assocs); err != nil {
		return nil, fmt.Errorf("cfg: `%s` must be an object of two-element arrays", key)
	}
	out := make(map[string]FileEntry, len(assocs))
	for urlPath, parts := range assocs {
		if len(parts) != 2 {
			return nil, fmt.Errorf("cfg: `%s`: bad %s format for %q", key, key, urlPath)
		}
		out[urlPath] = FileEntry{Path: parts[0], MIME: parts[1]}
	}
	return out, nil
}

func getCommandMap(top map[string]json.RawMessage, key string) (map[string]CommandEntry, error) {
	raw, ok := top[key]
	if !ok {
		return nil, fmt.Errorf("cfg: missing `%s` property", key)
	}
	var assocs map[string][]string
	if err := json.Unmarshal(raw, &assocs); err != nil {
		return nil, fmt.Errorf("cfg: `%s` must be an object of string arrays", key)
	}
	out := make(map[string]CommandEntry, len(assocs))
	for urlPath, parts := range assocs {
		if len(parts) < 1 {
			return nil, fmt.Errorf("cfg: `%s`: bad command format for %q", key, urlPath)
		}
		out[urlPath] = CommandEntry{Executable: parts[0], Args: append([]string(nil), parts[1:]...)}
	}
	return out, nil
}

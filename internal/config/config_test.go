package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `{
	"address": "0.0.0.0:8080",
	"server": "webgate/1.0",
	"not_found": "404.html",
	"files": {"/": ["index.html", "text/html"]},
	"directories": {},
	"commands": {"/run": ["/bin/echo", "hello"]}
}`

func TestLoadValidConfig(t *testing.T) {
	path := writeTempConfig(t, validConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Address != "0.0.0.0:8080" {
		t.Errorf("address = %q", cfg.Address)
	}
	if cfg.Files["/"].Path != "index.html" || cfg.Files["/"].MIME != "text/html" {
		t.Errorf("files entry = %+v", cfg.Files["/"])
	}
	cmd := cfg.Commands["/run"]
	if cmd.Executable != "/bin/echo" || len(cmd.Args) != 1 || cmd.Args[0] != "hello" {
		t.Errorf("commands entry = %+v", cmd)
	}
}

func TestLoadMissingKeyIsFatal(t *testing.T) {
	path := writeTempConfig(t, `{"address": "x"}`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for missing required keys")
	}
}

func TestLoadBadCommandFormat(t *testing.T) {
	body := `{
		"address": "x", "server": "y", "not_found": "z",
		"files": {}, "directories": {},
		"commands": {"/run": []}
	}`
	path := writeTempConfig(t, body)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for an empty command array")
	}
}

func TestLoadNotAnObject(t *testing.T) {
	path := writeTempConfig(t, `[1,2,3]`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error when the file is not a JSON object")
	}
}

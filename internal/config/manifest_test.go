package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool_servers.yaml")
	doc := `tool_servers:
  - id: websearch
    command: python
    args: ["servers/websearch.py"]
    env:
      SEARCH_DEPTH: "2"
  - id: documents
    command: python
    args: ["servers/documents.py"]
    cwd: /srv/tools
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.ToolServers) != 2 {
		t.Fatalf("expected 2 tool servers, got %d", len(m.ToolServers))
	}
	if m.ToolServers[0].ID != "websearch" || m.ToolServers[0].Env["SEARCH_DEPTH"] != "2" {
		t.Errorf("unexpected first server: %+v", m.ToolServers[0])
	}
	if m.ToolServers[1].Cwd != "/srv/tools" {
		t.Errorf("unexpected second server cwd: %q", m.ToolServers[1].Cwd)
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing manifest should not error: %v", err)
	}
	if len(m.ToolServers) != 0 {
		t.Errorf("expected empty manifest, got %+v", m)
	}
}

func TestLoadManifestInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte(":\n  - ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadManifest(path); err == nil {
		t.Fatal("expected parse error")
	}
}

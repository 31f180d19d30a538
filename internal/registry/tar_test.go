package registry

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func archiveEntries(t *testing.T, dir string) map[string]string {
	t.Helper()

	stream, err := tarDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	entries := make(map[string]string)
	reader := tar.NewReader(stream)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}

		content, err := io.ReadAll(reader)
		if err != nil {
			t.Fatal(err)
		}
		entries[header.Name] = string(content)
	}

	return entries
}

func TestTarDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Dockerfile", "FROM node:20-alpine\n")
	writeFile(t, dir, "src/index.js", "console.log(1)")

	entries := archiveEntries(t, dir)

	if entries["Dockerfile"] != "FROM node:20-alpine\n" {
		t.Errorf("unexpected Dockerfile content: %q", entries["Dockerfile"])
	}
	if _, ok := entries["src/"]; !ok {
		t.Error("expected a directory entry for src/")
	}
	if entries["src/index.js"] != "console.log(1)" {
		t.Errorf("unexpected file content: %q", entries["src/index.js"])
	}
}

func TestTarDirectory_ExcludesVendorTrees(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", "{}")
	writeFile(t, dir, "node_modules/express/index.js", "module.exports = {}")
	writeFile(t, dir, ".git/HEAD", "ref: refs/heads/main")

	entries := archiveEntries(t, dir)

	if _, ok := entries["package.json"]; !ok {
		t.Error("expected package.json in the archive")
	}
	for name := range entries {
		if strings.HasPrefix(name, "node_modules") || strings.HasPrefix(name, ".git") {
			t.Errorf("excluded entry leaked into the archive: %s", name)
		}
	}
}

func TestTarDirectory_EmptyDirectory(t *testing.T) {
	entries := archiveEntries(t, t.TempDir())
	if len(entries) != 0 {
		t.Errorf("expected an empty archive, got %v", entries)
	}
}

package harness

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFixture(t *testing.T) {
	fixture, err := NewFixture(t)
	if err != nil {
		t.Fatalf("NewFixture failed: %v", err)
	}

	// Verify fixture fields are set
	if fixture.TempDir == "" {
		t.Error("TempDir is empty")
	}
	if fixture.Root != filepath.Join(fixture.TempDir, "root") {
		t.Errorf("Root = %s, want %s/root", fixture.Root, fixture.TempDir)
	}
	if fixture.Env["FIXTURE_ROOT"] != fixture.Root {
		t.Errorf("FIXTURE_ROOT = %s, want %s", fixture.Env["FIXTURE_ROOT"], fixture.Root)
	}

	// Verify root directory exists
	if info, err := os.Stat(fixture.Root); err != nil || !info.IsDir() {
		t.Errorf("Root is not a directory: %v", err)
	}
}

func TestFixtureMaterialize(t *testing.T) {
	fixture, err := NewFixture(t)
	if err != nil {
		t.Fatalf("NewFixture failed: %v", err)
	}

	structure := []any{
		"dir/sub",
		map[string]any{"dir/file.txt": map[string]any{"content": "hello"}},
	}
	if err := fixture.Materialize(structure); err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if !fixture.Exists("dir/sub") {
		t.Error("dir/sub does not exist")
	}
	data, err := os.ReadFile(fixture.Path("dir/file.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}
}

func TestFixtureWriteScript(t *testing.T) {
	fixture, err := NewFixture(t)
	if err != nil {
		t.Fatalf("NewFixture failed: %v", err)
	}

	path, err := fixture.WriteScript("bin/hello.sh", "#!/bin/sh\necho hi\n", 0o755)
	if err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}
	if path != filepath.Join(fixture.Root, "bin", "hello.sh") {
		t.Errorf("path = %s", path)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestFixturePath(t *testing.T) {
	fixture := &Fixture{Root: "/tmp/root"}

	if got := fixture.Path("a/b"); got != "/tmp/root/a/b" {
		t.Errorf("Path(a/b) = %s", got)
	}
	if got := fixture.Path("/etc"); got != "/etc" {
		t.Errorf("Path(/etc) = %s", got)
	}
	if fixture.Exists("does-not-exist") {
		t.Error("Exists reported a missing path")
	}
}

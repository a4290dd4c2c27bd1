package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/timvw/pshell/fstree"
)

// Fixture represents a test environment rooted in a temporary directory
type Fixture struct {
	t       *testing.T
	TempDir string
	Root    string
	// Env is exported into the shell on setup.
	Env map[string]string
}

// NewFixture creates a new test fixture with an empty root directory
func NewFixture(t *testing.T) (*Fixture, error) {
	t.Helper()

	// Resolve symlinks so paths compare equal to what pwd -P reports.
	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve temp dir: %w", err)
	}
	root := filepath.Join(tmpDir, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create root: %w", err)
	}

	return &Fixture{
		t:       t,
		TempDir: tmpDir,
		Root:    root,
		Env:     map[string]string{"FIXTURE_ROOT": root},
	}, nil
}

// Materialize creates a declarative tree (see package fstree) under Root
func (f *Fixture) Materialize(structure any) error {
	nodes, err := fstree.Parse(structure)
	if err != nil {
		return err
	}
	return fstree.Create(f.Root, nodes)
}

// WriteScript writes a script under Root and returns its absolute path
func (f *Fixture) WriteScript(name, body string, mode fs.FileMode) (string, error) {
	err := fstree.Create(f.Root, []fstree.Node{{Path: name, Kind: fstree.File, Content: body, Mode: mode}})
	if err != nil {
		return "", fmt.Errorf("failed to write script %s: %w", name, err)
	}
	return f.Path(name), nil
}

// Path returns rel resolved against Root
func (f *Fixture) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(f.Root, rel)
}

// Exists reports whether rel exists under Root
func (f *Fixture) Exists(rel string) bool {
	_, err := os.Stat(f.Path(rel))
	return err == nil
}

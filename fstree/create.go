package fstree

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Sort orders nodes for creation: by kind, then shorter paths first, so
// parents exist before children and alterations apply to created paths.
func Sort(nodes []Node) []Node {
	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b Node) int {
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return len(a.Path) - len(b.Path)
	})
	return sorted
}

// Create materialises nodes under root. Existing directories and files are
// left alone apart from their mode; alterations require the path to exist.
func Create(root string, nodes []Node) error {
	for _, n := range Sort(nodes) {
		path, err := resolve(root, n.Path)
		if err != nil {
			return &NodeError{Path: n.Path, Err: err}
		}
		if err := create(path, n); err != nil {
			return &NodeError{Path: n.Path, Err: err}
		}
	}
	return nil
}

func resolve(root, p string) (string, error) {
	rel := strings.TrimLeft(filepath.FromSlash(p), string(filepath.Separator))
	if rel == "" {
		rel = "."
	}
	if !filepath.IsLocal(rel) && rel != "." {
		return "", fmt.Errorf("path escapes root")
	}
	return filepath.Join(root, rel), nil
}

func create(path string, n Node) error {
	_, statErr := os.Stat(path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}

	switch n.Kind {
	case Dir:
		if !exists {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return err
			}
		}
	case File:
		if !exists {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := writeFile(path, n); err != nil {
				return err
			}
		}
	case Alter:
		if !exists {
			return fmt.Errorf("cannot alter: %w", fs.ErrNotExist)
		}
	default:
		return fmt.Errorf("unknown kind %v", n.Kind)
	}

	if n.Mode != 0 {
		return os.Chmod(path, n.Mode)
	}
	return nil
}

func writeFile(path string, n Node) error {
	if n.CopyFrom == "" {
		return os.WriteFile(path, []byte(n.Content), 0o644)
	}
	src, err := os.Open(n.CopyFrom)
	if err != nil {
		return err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// Package fstree creates directories and files from a declarative
// description.
//
// A description is a list of items. A bare string is a directory. A single
// key map describes the path it is keyed by:
//
//	"tmp/one"                                       directory
//	{"tmp/one/a.txt": {"content": "hello"}}         file with content
//	{"bin/bash": {"copyfrom": "/bin/bash"}}         file copied from elsewhere
//	{"tmp/one/a.txt": {"mode": 0o600}}              chmod of an existing path
//
// Any item may carry a mode. Unknown keys are rejected.
package fstree

import (
	"fmt"
	"io/fs"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// Kind orders creation: directories first, then files, then alterations.
type Kind int

const (
	Dir Kind = iota
	File
	Alter
)

func (k Kind) String() string {
	switch k {
	case Dir:
		return "dir"
	case File:
		return "file"
	case Alter:
		return "alter"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is one path to create or modify, relative to the root it is
// materialised under.
type Node struct {
	Path     string
	Kind     Kind
	Content  string
	CopyFrom string
	// Mode is applied after creation. Zero leaves the default.
	Mode fs.FileMode
}

// NodeError reports a description item that could not be parsed or applied.
type NodeError struct {
	Path string
	Err  error
}

func (e *NodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("fstree: %v", e.Err)
	}
	return fmt.Sprintf("fstree: %s: %v", e.Path, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

type nodeSpec struct {
	Content  *string     `mapstructure:"content"`
	CopyFrom *string     `mapstructure:"copyfrom"`
	Mode     fs.FileMode `mapstructure:"mode"`
}

// Parse turns a description into nodes. structure is either a list of items
// or a map from path to item body.
func Parse(structure any) ([]Node, error) {
	switch s := structure.(type) {
	case nil:
		return nil, nil
	case []any:
		nodes := make([]Node, 0, len(s))
		for _, item := range s {
			n, err := ParseNode(item)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	case []string:
		nodes := make([]Node, 0, len(s))
		for _, p := range s {
			nodes = append(nodes, Node{Path: p, Kind: Dir})
		}
		return nodes, nil
	case map[string]any:
		nodes := make([]Node, 0, len(s))
		for path, body := range s {
			n, err := parseBody(path, body)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)
		}
		return nodes, nil
	default:
		return nil, &NodeError{Err: fmt.Errorf("unsupported structure %T", structure)}
	}
}

// ParseNode parses a single item.
func ParseNode(item any) (Node, error) {
	switch v := item.(type) {
	case string:
		if v == "" {
			return Node{}, &NodeError{Err: fmt.Errorf("empty path")}
		}
		return Node{Path: v, Kind: Dir}, nil
	case map[string]any:
		if len(v) != 1 {
			return Node{}, &NodeError{Err: fmt.Errorf("item must have exactly one path, got %d", len(v))}
		}
		for path, body := range v {
			return parseBody(path, body)
		}
	}
	return Node{}, &NodeError{Err: fmt.Errorf("unsupported item %T", item)}
}

func parseBody(path string, body any) (Node, error) {
	if path == "" {
		return Node{}, &NodeError{Err: fmt.Errorf("empty path")}
	}

	var spec nodeSpec
	if body != nil {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:  mapstructure.DecodeHookFuncType(modeHook),
			ErrorUnused: true,
			Result:      &spec,
		})
		if err != nil {
			return Node{}, &NodeError{Path: path, Err: err}
		}
		if err := dec.Decode(body); err != nil {
			return Node{}, &NodeError{Path: path, Err: err}
		}
	}

	n := Node{Path: path, Kind: Alter, Mode: spec.Mode}
	switch {
	case spec.Content != nil && spec.CopyFrom != nil:
		return Node{}, &NodeError{Path: path, Err: fmt.Errorf("content and copyfrom are mutually exclusive")}
	case spec.Content != nil:
		n.Kind = File
		n.Content = *spec.Content
	case spec.CopyFrom != nil:
		n.Kind = File
		n.CopyFrom = *spec.CopyFrom
	}
	return n, nil
}

var fileModeType = reflect.TypeOf(fs.FileMode(0))

// modeHook accepts modes as integers or as octal strings like "0755".
func modeHook(from, to reflect.Type, data any) (any, error) {
	if to != fileModeType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		m, err := strconv.ParseUint(v, 8, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid mode %q: %w", v, err)
		}
		return checkedMode(int64(m))
	case int:
		return checkedMode(int64(v))
	case int64:
		return checkedMode(v)
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("invalid mode %v", v)
		}
		return checkedMode(int64(v))
	}
	return data, nil
}

func checkedMode(v int64) (fs.FileMode, error) {
	if v < 0 || v > 0o777 {
		return 0, fmt.Errorf("mode %o out of range", v)
	}
	return fs.FileMode(v), nil
}

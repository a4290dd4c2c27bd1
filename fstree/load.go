package fstree

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// document is the TOML form of a description:
//
//	nodes = [
//	  "tmp/one",
//	  { "tmp/one/a.txt" = { content = "hello", mode = 0o600 } },
//	]
type document struct {
	Nodes []any `toml:"nodes"`
}

// ParseTOML parses a TOML description.
func ParseTOML(data string) ([]Node, error) {
	var doc document
	md, err := toml.Decode(data, &doc)
	if err != nil {
		return nil, &NodeError{Err: fmt.Errorf("decode: %w", err)}
	}
	// Item bodies are checked by Parse; only stray top-level keys matter here.
	var unknown []string
	for _, k := range md.Undecoded() {
		if len(k) > 0 && k[0] != "nodes" {
			unknown = append(unknown, k.String())
		}
	}
	if len(unknown) > 0 {
		return nil, &NodeError{Err: fmt.Errorf("unknown keys: %s", strings.Join(unknown, ", "))}
	}
	return Parse(doc.Nodes)
}

// LoadFile reads and parses a TOML description from path.
func LoadFile(path string) ([]Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", path, err)
	}
	return ParseTOML(string(data))
}

package conn

import "iter"

// History maps command text to captured output in first-insertion order.
// Setting an existing command again replaces its value but keeps its place.
type History struct {
	keys   []string
	values map[string]string
}

func newHistory() *History {
	return &History{values: make(map[string]string)}
}

// Set records output for command.
func (h *History) Set(command, output string) {
	if _, ok := h.values[command]; !ok {
		h.keys = append(h.keys, command)
	}
	h.values[command] = output
}

// Get returns the output recorded for command.
func (h *History) Get(command string) (string, bool) {
	v, ok := h.values[command]
	return v, ok
}

// Len returns the number of commands recorded.
func (h *History) Len() int {
	return len(h.keys)
}

// Keys returns the commands in insertion order.
func (h *History) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Last returns the output of the most recently inserted command, or "".
func (h *History) Last() string {
	if len(h.keys) == 0 {
		return ""
	}
	return h.values[h.keys[len(h.keys)-1]]
}

// All iterates over the entries in insertion order.
func (h *History) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, k := range h.keys {
			if !yield(k, h.values[k]) {
				return
			}
		}
	}
}

// Package dotpath interprets dot-delimited strings as paths into nested
// JSON-like value trees (map[string]any / []any / scalars).
//
// Segments are always object keys. "a.0.b" addresses the key "0", never an
// array index — array access goes through the store's array helpers instead.
package dotpath

import (
	"errors"
	"strings"
)

var ErrEmptyPath = errors.New("dotpath: empty path")

// Split breaks a dot-delimited path into its segments.
// The empty string yields nil (the root).
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// Get walks doc along path and returns the value found there.
// The second result is false when any segment is absent or an intermediate
// node is not an object. An empty path returns doc itself.
func Get(doc any, path string) (any, bool) {
	cur := doc
	for _, seg := range Split(path) {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set assigns v at path inside doc, materializing missing intermediate
// segments as empty objects. A non-object value sitting on an intermediate
// segment is overwritten by a fresh object. Empty path is an error: the root
// is the document itself and cannot be reassigned in place.
func Set(doc map[string]any, path string, v any) error {
	segs := Split(path)
	if len(segs) == 0 {
		return ErrEmptyPath
	}
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = v
	return nil
}

// Delete removes the leaf at path and reports whether a removal occurred.
// Nothing is touched unless the full path resolves. Empty path deletes
// nothing.
func Delete(doc map[string]any, path string) bool {
	segs := Split(path)
	if len(segs) == 0 {
		return false
	}
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			return false
		}
		cur = next
	}
	leaf := segs[len(segs)-1]
	if _, ok := cur[leaf]; !ok {
		return false
	}
	delete(cur, leaf)
	return true
}

// Package fieldpath provides dot-separated field lookups on JSON documents.
//
// Lookups return an explicit present/absent result instead of a sentinel
// value, so a missing intermediate key is a testable branch rather than a
// silent nil.
package fieldpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Value is the result of a field lookup.
type Value struct {
	raw     gjson.Result
	present bool
}

// Present reports whether the path resolved to a value.
func (v Value) Present() bool {
	return v.present
}

// String returns the value rendered as a string, or "" when absent.
// JSON null renders as "null".
func (v Value) String() string {
	if !v.present {
		return ""
	}
	if v.raw.Type == gjson.Null {
		return "null"
	}
	return v.raw.String()
}

// Equals compares the value's string rendering against want.
// An absent value never equals anything.
func (v Value) Equals(want string) bool {
	return v.present && v.String() == want
}

// Lookup resolves a dot-separated path (e.g. "data.items.0.id") against a
// JSON document. Array indices are plain numeric segments. A missing
// intermediate key yields an absent Value, not an error.
func Lookup(body []byte, path string) Value {
	if len(body) == 0 || path == "" {
		return Value{}
	}

	result := gjson.GetBytes(body, normalize(path))
	if !result.Exists() {
		return Value{}
	}
	return Value{raw: result, present: true}
}

// LookupString is Lookup over a string document.
func LookupString(body, path string) Value {
	return Lookup([]byte(body), path)
}

// Extract resolves a path and returns its string rendering, with an error
// when the path does not resolve. Callers that want the absent case as a
// value should use Lookup instead.
func Extract(body []byte, path string) (string, error) {
	v := Lookup(body, path)
	if !v.Present() {
		return "", fmt.Errorf("path not found: %s", path)
	}
	return v.String(), nil
}

// normalize converts bracket notation ("items[0].id", "['name']") into the
// dot form gjson expects. Plain dot paths pass through untouched.
func normalize(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")

	if strings.Contains(path, "['") {
		path = strings.ReplaceAll(path, "['", ".")
		path = strings.ReplaceAll(path, "']", "")
	}
	if strings.Contains(path, "[\"") {
		path = strings.ReplaceAll(path, "[\"", ".")
		path = strings.ReplaceAll(path, "\"]", "")
	}

	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	return strings.TrimPrefix(path, ".")
}

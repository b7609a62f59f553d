// Package configmeta defines the identity of a project configuration: a
// normalized project path paired with its global properties. Two references
// to the same file under different global properties are different
// configurations and therefore different graph nodes.
package configmeta

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vk/projectgraph/internal/properties"
)

// Key is the comparable identity of a Metadata value. It is safe to use as a
// map key and is what the work set deduplicates on.
type Key string

// Metadata is an immutable (path, global properties) pair. Its key is
// computed once at construction, so the property set can never drift from
// the identity it was registered under.
type Metadata struct {
	path       string
	properties *properties.Map
	key        Key
}

// New normalizes path and freezes props into a new Metadata. props is
// copied; later changes by the caller have no effect.
func New(path string, props *properties.Map) Metadata {
	normalized := NormalizePath(path)
	frozen := props.Clone()
	return Metadata{
		path:       normalized,
		properties: frozen,
		key:        Key(normalized + "\x00" + frozen.Canonical()),
	}
}

// FromMap is a convenience wrapper around New for plain Go maps.
func FromMap(path string, props map[string]string) Metadata {
	return New(path, properties.New(props))
}

// NormalizePath returns an absolute, cleaned path. Off Windows, backslash
// separators are rewritten to forward slashes first.
func NormalizePath(path string) string {
	if runtime.GOOS != "windows" {
		path = strings.ReplaceAll(path, `\`, "/")
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// ProjectFullPath returns the normalized project path.
func (m Metadata) ProjectFullPath() string { return m.path }

// GlobalProperties returns a copy of the global property set.
func (m Metadata) GlobalProperties() *properties.Map { return m.properties.Clone() }

// Key returns the identity key.
func (m Metadata) Key() Key { return m.key }

// Equal reports whether both values identify the same configuration.
func (m Metadata) Equal(other Metadata) bool { return m.key == other.key }

// IsZero reports whether m was never initialized through New.
func (m Metadata) IsZero() bool { return m.key == "" }

func (m Metadata) String() string {
	if m.properties.Len() == 0 {
		return m.path
	}
	return m.path + " (" + m.properties.String() + ")"
}

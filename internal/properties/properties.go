// Package properties implements the global-property set used to identify a
// project configuration. Keys are case-insensitive; enumeration follows
// insertion order while equality ignores it.
package properties

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type entry struct {
	name  string
	value string
}

// Map is an ordered, case-insensitive string to string mapping. The zero
// value is an empty map ready for use. A Map is not safe for concurrent
// mutation.
type Map struct {
	entries []entry
	index   map[string]int // folded key -> position in entries
}

// New builds a Map from a plain Go map. Because Go maps have no order, keys
// are inserted sorted so that enumeration is deterministic.
func New(from map[string]string) *Map {
	m := &Map{}
	names := make([]string, 0, len(from))
	for k := range from {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		m.Set(k, from[k])
	}
	return m
}

func fold(name string) string {
	return strings.ToLower(name)
}

// Set assigns value to name. Overwriting keeps the first spelling of the key.
func (m *Map) Set(name, value string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	k := fold(name)
	if i, ok := m.index[k]; ok {
		m.entries[i].value = value
		return
	}
	m.index[k] = len(m.entries)
	m.entries = append(m.entries, entry{name: name, value: value})
}

// Get returns the value stored under name and whether it was present.
func (m *Map) Get(name string) (string, bool) {
	if m == nil || m.index == nil {
		return "", false
	}
	i, ok := m.index[fold(name)]
	if !ok {
		return "", false
	}
	return m.entries[i].value, true
}

// Has reports whether name is present.
func (m *Map) Has(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Remove deletes name and reports whether it was present.
func (m *Map) Remove(name string) bool {
	if m == nil || m.index == nil {
		return false
	}
	k := fold(name)
	i, ok := m.index[k]
	if !ok {
		return false
	}
	m.entries = append(m.entries[:i], m.entries[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.entries); j++ {
		m.index[fold(m.entries[j].name)] = j
	}
	return true
}

// Len returns the number of properties.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the property names in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.entries))
	for i, e := range m.entries {
		keys[i] = e.name
	}
	return keys
}

// ToMap returns a copy of the properties as a plain Go map.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string, m.Len())
	if m == nil {
		return out
	}
	for _, e := range m.entries {
		out[e.name] = e.value
	}
	return out
}

// Clone returns an independent copy that preserves order and spelling.
func (m *Map) Clone() *Map {
	c := &Map{}
	if m == nil {
		return c
	}
	c.entries = append([]entry(nil), m.entries...)
	c.index = make(map[string]int, len(m.index))
	for k, v := range m.index {
		c.index[k] = v
	}
	return c
}

// Equal reports whether both maps hold the same keys and values, compared
// case-insensitively and regardless of insertion order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m.Len() == 0 {
		return true
	}
	for _, e := range m.entries {
		v, ok := other.Get(e.name)
		if !ok || !strings.EqualFold(v, e.value) {
			return false
		}
	}
	return true
}

// Canonical returns a stable encoding of the map: folded keys in sorted
// order, each paired with its folded value. Names and values are quoted, so
// separators inside them cannot make two different maps encode alike. Two
// maps are Equal exactly when their canonical encodings match.
func (m *Map) Canonical() string {
	if m.Len() == 0 {
		return ""
	}
	pairs := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		pairs = append(pairs, strconv.Quote(fold(e.name))+"="+strconv.Quote(fold(e.value)))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ";")
}

// String renders the properties as Key=Value pairs joined by ';'.
func (m *Map) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, len(m.entries))
	for i, e := range m.entries {
		parts[i] = e.name + "=" + e.value
	}
	return strings.Join(parts, ";")
}

// CheckListEntry reports whether name and value survive a round trip through
// String and ParseList.
func CheckListEntry(name, value string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("property name must not be empty")
	case strings.ContainsAny(name, "=;"):
		return fmt.Errorf("property name %q must not contain '=' or ';'", name)
	case strings.Contains(value, ";"):
		return fmt.Errorf("value of property %q must not contain ';'", name)
	}
	return nil
}

// ParseList parses "A=1;B=2" property lists. Entries without
// a '=' or with an empty name are ignored; surrounding whitespace is trimmed.
func ParseList(list string) *Map {
	m := &Map{}
	for _, part := range strings.Split(list, ";") {
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m.Set(name, strings.TrimSpace(value))
	}
	return m
}

// SplitNames splits a ';' separated list of property names, dropping blanks.
func SplitNames(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ";") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

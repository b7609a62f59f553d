package properties

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_CaseInsensitiveKeys(t *testing.T) {
	m := &Map{}
	m.Set("Configuration", "Debug")
	m.Set("CONFIGURATION", "Release")

	require.Equal(t, 1, m.Len())
	v, ok := m.Get("configuration")
	require.True(t, ok)
	assert.Equal(t, "Release", v)
	assert.Equal(t, []string{"Configuration"}, m.Keys(), "first spelling is kept")
}

func TestMap_KeysFollowInsertionOrder(t *testing.T) {
	m := &Map{}
	m.Set("b", "1")
	m.Set("a", "2")
	m.Set("c", "3")
	assert.Equal(t, []string{"b", "a", "c"}, m.Keys())

	require.True(t, m.Remove("A"))
	assert.Equal(t, []string{"b", "c"}, m.Keys())
	v, ok := m.Get("c")
	require.True(t, ok)
	assert.Equal(t, "3", v)
	assert.False(t, m.Remove("a"))
}

func TestMap_Equal(t *testing.T) {
	testCases := []struct {
		name  string
		left  map[string]string
		right [][2]string
		equal bool
	}{
		{
			name:  "same content different order",
			left:  map[string]string{"Configuration": "Debug", "Platform": "x64"},
			right: [][2]string{{"platform", "x64"}, {"configuration", "Debug"}},
			equal: true,
		},
		{
			name:  "values compare case-insensitively",
			left:  map[string]string{"Configuration": "Debug"},
			right: [][2]string{{"Configuration", "DEBUG"}},
			equal: true,
		},
		{
			name:  "different value",
			left:  map[string]string{"Configuration": "Debug"},
			right: [][2]string{{"Configuration", "Release"}},
			equal: false,
		},
		{
			name:  "extra key",
			left:  map[string]string{"Configuration": "Debug"},
			right: [][2]string{{"Configuration", "Debug"}, {"Platform", "x64"}},
			equal: false,
		},
		{
			name:  "both empty",
			left:  nil,
			right: nil,
			equal: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			left := New(tc.left)
			right := &Map{}
			for _, kv := range tc.right {
				right.Set(kv[0], kv[1])
			}
			assert.Equal(t, tc.equal, left.Equal(right))
			assert.Equal(t, tc.equal, left.Canonical() == right.Canonical())
		})
	}
}

func TestMap_CanonicalSeparatorsInNames(t *testing.T) {
	testCases := []struct {
		name  string
		left  map[string]string
		right map[string]string
	}{
		{name: "equals sign moves between name and value", left: map[string]string{"a=b": "c"}, right: map[string]string{"a": "b=c"}},
		{name: "list separator inside a value", left: map[string]string{"a": "1;b=2"}, right: map[string]string{"a": "1", "b": "2"}},
		{name: "quote inside a value", left: map[string]string{"a": `x"="y`}, right: map[string]string{"a": "x", "y": ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			left, right := New(tc.left), New(tc.right)
			assert.False(t, left.Equal(right))
			assert.NotEqual(t, left.Canonical(), right.Canonical())
		})
	}
}

func TestCheckListEntry(t *testing.T) {
	assert.NoError(t, CheckListEntry("Configuration", "Debug=1"))
	assert.ErrorContains(t, CheckListEntry("", "x"), "must not be empty")
	assert.ErrorContains(t, CheckListEntry("a=b", "c"), "must not contain")
	assert.ErrorContains(t, CheckListEntry("a;b", "c"), "must not contain")
	assert.ErrorContains(t, CheckListEntry("a", "1;2"), "must not contain ';'")
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := New(map[string]string{"A": "1"})
	c := m.Clone()
	c.Set("B", "2")
	c.Set("a", "changed")

	v, _ := m.Get("A")
	assert.Equal(t, "1", v)
	assert.False(t, m.Has("B"))
	assert.Equal(t, map[string]string{"A": "changed", "B": "2"}, c.ToMap())
}

func TestParseList(t *testing.T) {
	m := ParseList(" Configuration = Release ;Platform=x64;;novalue; =skipped")
	assert.Equal(t, []string{"Configuration", "Platform"}, m.Keys())
	assert.Equal(t, "Configuration=Release;Platform=x64", m.String())
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, SplitNames(" A ;; B;"))
	assert.Nil(t, SplitNames(""))
}

package configmeta

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/projectgraph/internal/properties"
)

func TestNew_EqualIgnoresPropertyOrder(t *testing.T) {
	left := &properties.Map{}
	left.Set("Configuration", "Debug")
	left.Set("Platform", "x64")

	right := &properties.Map{}
	right.Set("platform", "x64")
	right.Set("configuration", "Debug")

	a := New("/src/a.proj.hcl", left)
	b := New("/src/a.proj.hcl", right)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	seen := map[Key]bool{a.Key(): true}
	assert.True(t, seen[b.Key()], "equal metadata must land on the same map entry")
}

func TestNew_DifferentValueIsDifferentNode(t *testing.T) {
	a := FromMap("/src/a.proj.hcl", map[string]string{"Configuration": "Debug"})
	b := FromMap("/src/a.proj.hcl", map[string]string{"Configuration": "Release"})
	c := FromMap("/src/b.proj.hcl", map[string]string{"Configuration": "Debug"})

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestNew_SeparatorsDoNotCollide(t *testing.T) {
	a := FromMap("/src/a.proj.hcl", map[string]string{"a=b": "c"})
	b := FromMap("/src/a.proj.hcl", map[string]string{"a": "b=c"})

	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestNew_FreezesProperties(t *testing.T) {
	props := properties.New(map[string]string{"A": "1"})
	m := New("/src/a.proj.hcl", props)
	key := m.Key()

	props.Set("IsGraphBuild", "true")
	assert.Equal(t, key, m.Key())
	assert.False(t, m.GlobalProperties().Has("IsGraphBuild"))

	copied := m.GlobalProperties()
	copied.Set("B", "2")
	assert.False(t, m.GlobalProperties().Has("B"))
}

func TestNormalizePath(t *testing.T) {
	abs, err := filepath.Abs("rel/dir/../p.proj.hcl")
	require.NoError(t, err)
	assert.Equal(t, abs, NormalizePath("rel/dir/../p.proj.hcl"))
	assert.Equal(t, NormalizePath("/src/a.proj.hcl"), FromMap("/src/./x/../a.proj.hcl", nil).ProjectFullPath())

	if runtime.GOOS != "windows" {
		assert.Equal(t, "/src/lib/l.proj.hcl", NormalizePath(`/src\lib\l.proj.hcl`))
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, NormalizePath("/src/a.proj.hcl"), FromMap("/src/a.proj.hcl", nil).String())
	assert.Equal(t, NormalizePath("/src/a.proj.hcl")+" (A=1)", FromMap("/src/a.proj.hcl", map[string]string{"A": "1"}).String())
	assert.True(t, Metadata{}.IsZero())
}

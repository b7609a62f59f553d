package project

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/projectgraph/internal/properties"
)

func TestItem_MetadataIsCaseInsensitive(t *testing.T) {
	meta := &properties.Map{}
	meta.Set("SetConfiguration", "Configuration=Release")
	meta.Set("Properties", "")

	item := NewItem(ProjectReferenceItemType, "../lib/lib.proj.hcl", meta)
	meta.Set("Later", "x")

	assert.Equal(t, "Configuration=Release", item.Metadata("setconfiguration"))
	assert.True(t, item.HasMetadata("PROPERTIES"))
	assert.Equal(t, "", item.Metadata("Properties"))
	assert.False(t, item.HasMetadata("Later"))
	assert.Equal(t, []string{"SetConfiguration", "Properties"}, item.MetadataNames())
	assert.Equal(t, "ProjectReference(../lib/lib.proj.hcl)", item.String())
}

func TestInstance_PropertyPrecedenceAndItems(t *testing.T) {
	global := properties.New(map[string]string{"Configuration": "Release"})
	declared := properties.New(map[string]string{"Configuration": "Debug", "OutputType": "Exe"})
	items := []*Item{
		NewItem("Compile", "main.go", nil),
		NewItem("ProjectReference", "a.proj.hcl", nil),
		NewItem("projectreference", "b.proj.hcl", nil),
	}

	p := NewInstance("/src/app.proj.hcl", global, declared, items)

	assert.Equal(t, "Release", p.Property("configuration"))
	assert.Equal(t, "Exe", p.Property("OutputType"))
	assert.Equal(t, "", p.Property("Missing"))

	refs := p.Items(ProjectReferenceItemType)
	require.Len(t, refs, 2)
	assert.Equal(t, "a.proj.hcl", refs[0].Include)
	assert.Equal(t, "b.proj.hcl", refs[1].Include)
	assert.Len(t, p.AllItems(), 3)
}

func TestEvaluationContext_CollapsesConcurrentLoads(t *testing.T) {
	evalCtx := NewEvaluationContext()
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]string, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Load(evalCtx, "file.hcl", func() (string, error) {
				<-release
				return "parsed", nil
			})
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(release)
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "parsed", r)
	}
	assert.Equal(t, int64(1), evalCtx.Computations())

	v, err := Load(evalCtx, "file.hcl", func() (string, error) { return "again", nil })
	require.NoError(t, err)
	assert.Equal(t, "parsed", v)
	assert.Equal(t, int64(1), evalCtx.Computations())
}

func TestEvaluationContext_ErrorsAreNotCached(t *testing.T) {
	evalCtx := NewEvaluationContext()
	errParse := errors.New("parse failed")

	_, err := Load(evalCtx, "k", func() (int, error) { return 0, errParse })
	require.ErrorIs(t, err, errParse)

	v, err := Load(evalCtx, "k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int64(2), evalCtx.Computations())
}

func TestEvaluationContext_TypeMismatch(t *testing.T) {
	evalCtx := NewEvaluationContext()
	_, err := Load(evalCtx, "k", func() (int, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Load(evalCtx, "k", func() (string, error) { return "x", nil })
	assert.ErrorContains(t, err, "holds int")
}

func TestEvaluationContext_ZeroValue(t *testing.T) {
	evalCtx := &EvaluationContext{}
	for i := 0; i < 2; i++ {
		v, err := Load(evalCtx, "k", func() (int, error) { return 3, nil })
		require.NoError(t, err)
		assert.Equal(t, 3, v)
	}
	assert.Equal(t, int64(1), evalCtx.Computations())
}

func TestEvaluationContext_Nil(t *testing.T) {
	var evalCtx *EvaluationContext
	v, err := Load(evalCtx, "k", func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Zero(t, evalCtx.Computations())
}

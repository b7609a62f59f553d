// Package hclproject evaluates project and solution files written in HCL.
//
// A project file (*.proj.hcl) declares properties, references to other
// projects and free-form items:
//
//	properties = { OutputType = "Library" }
//
//	reference "../lib/lib.proj.hcl" {
//	  condition         = global_or("Configuration", "Debug") == "Debug"
//	  set_configuration = "Configuration=Release"
//	}
//
//	item "Compile" "main.go" {
//	  metadata = { Visible = "false" }
//	}
//
// Expressions can read the variables global (the global properties),
// project (file, dir and name of the project) and, outside the properties
// attribute, property (the declared properties).
package hclproject

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/interpretation"
	"github.com/vk/projectgraph/internal/project"
	"github.com/vk/projectgraph/internal/properties"
)

// ProjectFileSuffix is the suffix of project files found by directory
// discovery.
const ProjectFileSuffix = ".proj.hcl"

var projectSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "properties"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "reference", LabelNames: []string{"path"}},
		{Type: "item", LabelNames: []string{"type", "include"}},
	},
}

// Attribute names of a reference block mapped to the item metadata they set.
var referenceMetadata = []struct {
	attr     string
	metadata string
	kind     valueKind
}{
	{"set_configuration", interpretation.MetadataSetConfiguration, kindString},
	{"set_platform", interpretation.MetadataSetPlatform, kindString},
	{"set_target_framework", interpretation.MetadataSetTargetFramework, kindString},
	{"properties", interpretation.MetadataProperties, kindProperties},
	{"additional_properties", interpretation.MetadataAdditionalProperties, kindProperties},
	{"global_properties_to_remove", interpretation.MetadataGlobalPropertiesToRemove, kindNames},
	{"undefine_properties", interpretation.MetadataUndefineProperties, kindNames},
	{"build_reference", interpretation.MetadataBuildReference, kindString},
}

type valueKind int

const (
	kindString valueKind = iota
	kindProperties
	kindNames
)

var referenceSchema = func() *hcl.BodySchema {
	s := &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "condition"}, {Name: "metadata"}},
	}
	for _, m := range referenceMetadata {
		s.Attributes = append(s.Attributes, hcl.AttributeSchema{Name: m.attr})
	}
	return s
}()

var itemSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "condition"}, {Name: "metadata"}},
}

// Evaluate is a project.Factory backed by HCL project files. Parsed files
// are cached in evalCtx, so each file is read once per graph build.
func Evaluate(ctx context.Context, path string, globals *properties.Map, evalCtx *project.EvaluationContext) (*project.Instance, error) {
	logger := ctxlog.FromContext(ctx)
	fullPath := configmeta.NormalizePath(path)

	file, err := project.Load(evalCtx, "hcl:"+fullPath, func() (*hcl.File, error) {
		return parseFile(fullPath)
	})
	if err != nil {
		return nil, err
	}

	content, diags := file.Body.Content(projectSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode project file %s: %w", fullPath, diags)
	}

	hclCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"global": objectOf(globals),
			"project": cty.ObjectVal(map[string]cty.Value{
				"file": cty.StringVal(fullPath),
				"dir":  cty.StringVal(filepath.Dir(fullPath)),
				"name": cty.StringVal(strings.TrimSuffix(filepath.Base(fullPath), ProjectFileSuffix)),
			}),
		},
		Functions: functions(globals),
	}

	declared := &properties.Map{}
	if attr, ok := content.Attributes["properties"]; ok {
		v, err := evalAttr(attr, hclCtx)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", fullPath, err)
		}
		if declared, err = toProperties(v); err != nil {
			return nil, fmt.Errorf("project %s: properties: %w", fullPath, err)
		}
	}
	hclCtx.Variables["property"] = objectOf(declared)

	var items []*project.Item
	for _, block := range content.Blocks {
		var item *project.Item
		var include bool
		switch block.Type {
		case "reference":
			item, include, err = evalReference(block, hclCtx)
		case "item":
			item, include, err = evalItem(block, hclCtx)
		}
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", fullPath, err)
		}
		if include {
			items = append(items, item)
		}
	}

	logger.Debug("Project evaluated.", "path", fullPath, "properties", declared.Len(), "items", len(items))
	return project.NewInstance(fullPath, globals, declared, items), nil
}

func parseFile(path string) (*hcl.File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}
	file, diags := hclsyntax.ParseConfig(src, path, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, diags)
	}
	return file, nil
}

// condition evaluates the optional condition attribute. A missing condition
// is true.
func condition(content *hcl.BodyContent, evalCtx *hcl.EvalContext) (bool, error) {
	attr, ok := content.Attributes["condition"]
	if !ok {
		return true, nil
	}
	v, err := evalAttr(attr, evalCtx)
	if err != nil {
		return false, err
	}
	b, err := toBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: condition: %w", attr.Range, err)
	}
	return b, nil
}

func metadataAttr(content *hcl.BodyContent, evalCtx *hcl.EvalContext, into *properties.Map) error {
	attr, ok := content.Attributes["metadata"]
	if !ok {
		return nil
	}
	v, err := evalAttr(attr, evalCtx)
	if err != nil {
		return err
	}
	meta, err := toProperties(v)
	if err != nil {
		return fmt.Errorf("%s: metadata: %w", attr.Range, err)
	}
	for _, k := range meta.Keys() {
		val, _ := meta.Get(k)
		into.Set(k, val)
	}
	return nil
}

func evalReference(block *hcl.Block, evalCtx *hcl.EvalContext) (*project.Item, bool, error) {
	content, diags := block.Body.Content(referenceSchema)
	if diags.HasErrors() {
		return nil, false, diags
	}
	include, err := condition(content, evalCtx)
	if err != nil || !include {
		return nil, false, err
	}

	meta := &properties.Map{}
	if err := metadataAttr(content, evalCtx, meta); err != nil {
		return nil, false, err
	}
	for _, m := range referenceMetadata {
		attr, ok := content.Attributes[m.attr]
		if !ok {
			continue
		}
		v, err := evalAttr(attr, evalCtx)
		if err != nil {
			return nil, false, err
		}
		var s string
		switch m.kind {
		case kindString:
			s, err = toString(v)
		case kindProperties:
			var props *properties.Map
			if props, err = toProperties(v); err == nil {
				s, err = propertyList(props)
			}
		case kindNames:
			s, err = toNameList(v)
		}
		if err != nil {
			return nil, false, fmt.Errorf("%s: %s: %w", attr.Range, m.attr, err)
		}
		meta.Set(m.metadata, s)
	}

	return project.NewItem(project.ProjectReferenceItemType, block.Labels[0], meta), true, nil
}

func evalItem(block *hcl.Block, evalCtx *hcl.EvalContext) (*project.Item, bool, error) {
	content, diags := block.Body.Content(itemSchema)
	if diags.HasErrors() {
		return nil, false, diags
	}
	include, err := condition(content, evalCtx)
	if err != nil || !include {
		return nil, false, err
	}
	meta := &properties.Map{}
	if err := metadataAttr(content, evalCtx, meta); err != nil {
		return nil, false, err
	}
	return project.NewItem(block.Labels[0], block.Labels[1], meta), true, nil
}

// propertyList renders props as a "K=V;K=V" metadata value, refusing entries
// the list form would split differently.
func propertyList(props *properties.Map) (string, error) {
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		if err := properties.CheckListEntry(k, v); err != nil {
			return "", err
		}
	}
	return props.String(), nil
}

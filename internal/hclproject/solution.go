package hclproject

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/solution"
)

// Solution parser error codes.
const (
	ErrorCodeMissingProjectPath = "MissingProjectPath"
	ErrorCodeUnknownProjectType = "UnknownProjectType"
)

type solutionRoot struct {
	DefaultConfiguration string             `hcl:"default_configuration,optional"`
	DefaultPlatform      string             `hcl:"default_platform,optional"`
	Projects             []*solutionProject `hcl:"project,block"`
}

type solutionProject struct {
	Name           string                   `hcl:"name,label"`
	Path           string                   `hcl:"path,optional"`
	Type           string                   `hcl:"type,optional"`
	DependsOn      []string                 `hcl:"depends_on,optional"`
	Configurations []*solutionConfiguration `hcl:"configuration,block"`
}

type solutionConfiguration struct {
	Name          string `hcl:"name,label"`
	Configuration string `hcl:"configuration,optional"`
	Platform      string `hcl:"platform,optional"`
	Build         *bool  `hcl:"build,optional"`
}

// SolutionParser reads *.sln.hcl files:
//
//	default_configuration = "Debug"
//	default_platform      = "Any CPU"
//
//	project "app" {
//	  path = "src/app/app.proj.hcl"
//	  configuration "Debug|Any CPU" {
//	    configuration = "Debug"
//	    platform      = "AnyCPU"
//	  }
//	}
//
// Structural problems inside a well-formed file are reported through the
// Warnings and ErrorCodes of the returned solution rather than as errors.
type SolutionParser struct{}

var _ solution.Parser = SolutionParser{}

// Parse implements solution.Parser.
func (SolutionParser) Parse(ctx context.Context, path string) (*solution.File, error) {
	logger := ctxlog.FromContext(ctx)
	fullPath := configmeta.NormalizePath(path)
	logger.Debug("Parsing solution file.", "path", fullPath)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(fullPath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse solution file %s: %w", fullPath, diags)
	}

	var root solutionRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode solution file %s: %w", fullPath, diags)
	}

	file := &solution.File{
		FullPath:             fullPath,
		DefaultConfiguration: root.DefaultConfiguration,
		DefaultPlatform:      root.DefaultPlatform,
	}
	dir := filepath.Dir(fullPath)
	seen := make(map[string]bool)

	for _, p := range root.Projects {
		key := strings.ToLower(p.Name)
		if seen[key] {
			file.Warnings = append(file.Warnings, fmt.Sprintf("project %q is declared more than once", p.Name))
			continue
		}
		seen[key] = true

		if p.Path == "" {
			file.ErrorCodes = append(file.ErrorCodes, ErrorCodeMissingProjectPath+": "+p.Name)
			continue
		}

		projectType := solution.ProjectType(strings.ToLower(p.Type))
		switch projectType {
		case "":
			projectType = solution.ProjectTypeProject
		case solution.ProjectTypeProject, solution.ProjectTypeFolder:
		default:
			file.ErrorCodes = append(file.ErrorCodes, ErrorCodeUnknownProjectType+": "+p.Name)
			continue
		}

		abs := filepath.FromSlash(strings.ReplaceAll(p.Path, `\`, "/"))
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(dir, abs)
		}

		entry := &solution.Project{
			Name:         p.Name,
			RelativePath: p.Path,
			AbsolutePath: configmeta.NormalizePath(abs),
			Type:         projectType,
			Dependencies: p.DependsOn,
		}
		for _, c := range p.Configurations {
			entry.Configurations = append(entry.Configurations, projectConfiguration(c))
		}
		file.Projects = append(file.Projects, entry)
	}

	logger.Debug("Solution parsed.", "path", fullPath, "projects", len(file.Projects), "warnings", len(file.Warnings), "errors", len(file.ErrorCodes))
	return file, nil
}

// projectConfiguration fills unset configuration and platform names from
// the solution configuration label. Projects build by default.
func projectConfiguration(c *solutionConfiguration) solution.ProjectConfiguration {
	label := solution.ParseConfiguration(c.Name)
	pc := solution.ProjectConfiguration{
		FullName:          label.FullName(),
		ConfigurationName: c.Configuration,
		PlatformName:      c.Platform,
		IncludeInBuild:    c.Build == nil || *c.Build,
	}
	if pc.ConfigurationName == "" {
		pc.ConfigurationName = label.ConfigurationName
	}
	if pc.PlatformName == "" {
		pc.PlatformName = label.PlatformName
	}
	return pc
}

// Package solution models a solution file: a list of projects, each with a
// mapping from solution configurations to project configurations. Solutions
// can only be graph entry points; the builder expands them into their
// buildable projects.
package solution

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/vk/projectgraph/internal/properties"
)

// Well-known global property names used for configuration selection.
const (
	ConfigurationProperty = "Configuration"
	PlatformProperty      = "Platform"
)

// ProjectType classifies a solution entry.
type ProjectType string

const (
	// ProjectTypeProject is a buildable project file.
	ProjectTypeProject ProjectType = "project"
	// ProjectTypeFolder is an organizational folder with nothing to build.
	ProjectTypeFolder ProjectType = "folder"
)

// Configuration is a solution level configuration and platform pair.
type Configuration struct {
	ConfigurationName string
	PlatformName      string
}

// FullName returns "Configuration|Platform".
func (c Configuration) FullName() string {
	return c.ConfigurationName + "|" + c.PlatformName
}

// ParseConfiguration splits "Configuration|Platform". A missing platform
// yields an empty PlatformName.
func ParseConfiguration(fullName string) Configuration {
	cfg, plat, _ := strings.Cut(fullName, "|")
	return Configuration{ConfigurationName: strings.TrimSpace(cfg), PlatformName: strings.TrimSpace(plat)}
}

// ProjectConfiguration is what a project builds as under one solution
// configuration.
type ProjectConfiguration struct {
	// FullName is the solution configuration this entry is keyed by.
	FullName          string
	ConfigurationName string
	PlatformName      string
	IncludeInBuild    bool
}

// Project is one entry of a solution.
type Project struct {
	Name         string
	RelativePath string
	AbsolutePath string
	Type         ProjectType
	// Dependencies are solution-only build ordering dependencies, by project
	// name.
	Dependencies []string
	// Configurations are kept in declaration order.
	Configurations []ProjectConfiguration
}

func (p *Project) String() string {
	return p.Name + " (" + p.RelativePath + ")"
}

// File is a parsed solution.
type File struct {
	FullPath             string
	DefaultConfiguration string
	DefaultPlatform      string
	Projects             []*Project
	Warnings             []string
	ErrorCodes           []string
}

// Parser loads solution files.
type Parser interface {
	Parse(ctx context.Context, path string) (*File, error)
}

// IsSolutionFilename reports whether path names a solution file.
func IsSolutionFilename(path string) bool {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".sln.hcl"):
		return true
	case strings.HasSuffix(lower, ".slnx"):
		return true
	default:
		return filepath.Ext(lower) == ".sln"
	}
}

// BuildableProjects returns the project entries in declaration order,
// skipping folders.
func (f *File) BuildableProjects() []*Project {
	var out []*Project
	for _, p := range f.Projects {
		if p.Type == ProjectTypeProject {
			out = append(out, p)
		}
	}
	return out
}

// Configurations returns the distinct solution configurations referenced by
// the projects, in first-seen order.
func (f *File) Configurations() []Configuration {
	seen := make(map[string]bool)
	var out []Configuration
	for _, p := range f.Projects {
		for _, pc := range p.Configurations {
			key := strings.ToLower(pc.FullName)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ParseConfiguration(pc.FullName))
		}
	}
	return out
}

// DefaultConfigurationName returns the declared default configuration, or
// "Debug" when the solution has one, or the first configuration it lists.
func (f *File) DefaultConfigurationName() string {
	if f.DefaultConfiguration != "" {
		return f.DefaultConfiguration
	}
	return pickDefault(f.Configurations(), func(c Configuration) string { return c.ConfigurationName }, "Debug")
}

// DefaultPlatformName returns the declared default platform, or "Mixed
// Platforms", then "Any CPU" when the solution has one, or the first
// platform it lists.
func (f *File) DefaultPlatformName() string {
	if f.DefaultPlatform != "" {
		return f.DefaultPlatform
	}
	return pickDefault(f.Configurations(), func(c Configuration) string { return c.PlatformName }, "Mixed Platforms", "Any CPU")
}

func pickDefault(cfgs []Configuration, field func(Configuration) string, preferred ...string) string {
	for _, want := range preferred {
		for _, c := range cfgs {
			if strings.EqualFold(field(c), want) {
				return field(c)
			}
		}
	}
	if len(cfgs) > 0 {
		return field(cfgs[0])
	}
	return ""
}

// SelectSolutionConfiguration picks the active solution configuration from
// the Configuration and Platform global properties, falling back to the
// solution defaults.
func SelectSolutionConfiguration(f *File, globalProperties *properties.Map) Configuration {
	cfg, ok := globalProperties.Get(ConfigurationProperty)
	if !ok {
		cfg = f.DefaultConfigurationName()
	}
	plat, ok := globalProperties.Get(PlatformProperty)
	if !ok {
		plat = f.DefaultPlatformName()
	}
	return Configuration{ConfigurationName: cfg, PlatformName: plat}
}

// SelectProjectConfiguration picks the project configuration for the active
// solution configuration: an exact "Configuration|Platform" match, else the
// first entry with the same configuration name, else the first entry. It
// returns false when projectConfigs is empty.
func SelectProjectConfiguration(active Configuration, projectConfigs []ProjectConfiguration) (ProjectConfiguration, bool) {
	if len(projectConfigs) == 0 {
		return ProjectConfiguration{}, false
	}
	fullName := active.FullName()
	for _, pc := range projectConfigs {
		if strings.EqualFold(pc.FullName, fullName) {
			return pc, true
		}
	}
	for _, pc := range projectConfigs {
		if strings.EqualFold(pc.ConfigurationName, active.ConfigurationName) {
			return pc, true
		}
	}
	return projectConfigs[0], true
}

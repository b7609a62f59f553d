package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/properties"
	"github.com/vk/projectgraph/internal/solution"
)

// IsGraphBuildProperty marks every entry point configuration as part of a
// graph build.
const IsGraphBuildProperty = "IsGraphBuild"

// EntryPoint is a project or solution file plus the global properties it is
// built with.
type EntryPoint struct {
	ProjectFile      string
	GlobalProperties map[string]string
}

// seed turns the caller's entry points into configurations, expanding a
// solution entry point and injecting the graph build marker.
func seed(ctx context.Context, entryPoints []EntryPoint, parser solution.Parser) ([]configmeta.Metadata, error) {
	logger := ctxlog.FromContext(ctx)

	expanded, err := expandSolution(ctx, entryPoints, parser)
	if err != nil {
		return nil, err
	}

	out := make([]configmeta.Metadata, 0, len(expanded))
	for _, ep := range expanded {
		props := properties.New(ep.GlobalProperties)
		if !props.Has(IsGraphBuildProperty) {
			props.Set(IsGraphBuildProperty, "true")
		}
		out = append(out, configmeta.New(ep.ProjectFile, props))
	}
	logger.Debug("Build: Entry points seeded.", "count", len(out))
	return out, nil
}

func expandSolution(ctx context.Context, entryPoints []EntryPoint, parser solution.Parser) ([]EntryPoint, error) {
	var solutionEntry *EntryPoint
	for i := range entryPoints {
		if solution.IsSolutionFilename(entryPoints[i].ProjectFile) {
			solutionEntry = &entryPoints[i]
			break
		}
	}
	if solutionEntry == nil {
		return entryPoints, nil
	}
	if len(entryPoints) > 1 {
		return nil, configErrorf("a solution entry point (%s) cannot be combined with other entry points", solutionEntry.ProjectFile)
	}
	if parser == nil {
		return nil, configErrorf("no solution parser configured for %s", solutionEntry.ProjectFile)
	}

	logger := ctxlog.FromContext(ctx).With("solution", solutionEntry.ProjectFile)
	file, err := parser.Parse(ctx, solutionEntry.ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse solution %s: %w", solutionEntry.ProjectFile, err)
	}
	if len(file.Warnings) > 0 || len(file.ErrorCodes) > 0 {
		problems := append(append([]string(nil), file.Warnings...), file.ErrorCodes...)
		return nil, configErrorf("solution %s has parse problems: %s", solutionEntry.ProjectFile, strings.Join(problems, "; "))
	}

	buildable := file.BuildableProjects()
	for _, p := range buildable {
		if len(p.Dependencies) > 0 {
			return nil, configErrorf("solution %s declares dependencies for %s; express them as project references instead", solutionEntry.ProjectFile, p.Name)
		}
	}

	globals := properties.New(solutionEntry.GlobalProperties)
	active := solution.SelectSolutionConfiguration(file, globals)
	logger.Debug("Build: Solution configuration selected.", "configuration", active.FullName())

	var out []EntryPoint
	for _, p := range buildable {
		if len(p.Configurations) == 0 {
			continue
		}
		pc, ok := solution.SelectProjectConfiguration(active, p.Configurations)
		if !ok || !pc.IncludeInBuild {
			logger.Debug("Build: Solution project excluded from build.", "project", p.Name)
			continue
		}
		props := globals.Clone()
		props.Set(solution.ConfigurationProperty, pc.ConfigurationName)
		props.Set(solution.PlatformProperty, pc.PlatformName)
		out = append(out, EntryPoint{ProjectFile: p.AbsolutePath, GlobalProperties: props.ToMap()})
	}
	logger.Info("Build: Solution expanded.", "projects", len(out))
	return out, nil
}

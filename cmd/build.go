package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nativebuild/nbs/internal/compiler"
	"github.com/nativebuild/nbs/internal/generate"
	"github.com/nativebuild/nbs/internal/model"
	"github.com/nativebuild/nbs/internal/planner"
	"github.com/nativebuild/nbs/internal/recipe"
)

// buildOptions bundles the CLI-facing build knobs that feed GeneratorSettings.
type buildOptions struct {
	config    string
	buildType string
	generator string
	force     bool
	rdmd      bool
	direct    bool
	run       bool
	watch     bool
	runArgs   []string
}

// manifestPathIn resolves target (a directory or a manifest file path
// directly) to the Project.toml to load. A nonexistent path is treated as
// "directory containing Project.toml" so the real error surfaces from the
// eventual os.Open in recipe.ParseManifestFile with a clearer message.
func manifestPathIn(target string) (string, error) {
	if fi, err := os.Stat(target); err == nil && !fi.IsDir() {
		return target, nil
	}
	return filepath.Join(target, "Project.toml"), nil
}

// runBuild loads the manifest tree rooted at target, plans it, and
// dispatches to the requested generator backend.
func runBuild(target string, opts buildOptions) error {
	manifestPath, err := manifestPathIn(target)
	if err != nil {
		return err
	}

	project, err := recipe.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", manifestPath, err)
	}

	platform, err := compiler.FindCompiler("")
	if err != nil {
		return fmt.Errorf("resolving D compiler: %w", err)
	}
	driver := compiler.NewGenericDriver()

	gs := model.GeneratorSettings{
		Platform:  platform,
		Config:    opts.config,
		BuildType: opts.buildType,
		Force:     opts.force,
		RDMD:      opts.rdmd,
		Direct:    opts.direct,
		Run:       opts.run,
		Watch:     opts.watch,
		RunArgs:   opts.runArgs,
	}

	targets, _, err := planner.Plan(project, gs, driver)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	gen, err := generate.New(opts.generator, driver)
	if err != nil {
		return err
	}
	return gen.Generate(targets, project.RootPackage(), gs)
}

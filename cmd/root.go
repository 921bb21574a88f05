// Package cmd is the Cobra-based CLI driving the build orchestration core:
// the thin frontend spec §1 scopes out of the core itself, wired here from
// internal/recipe (manifest + dependency graph) through internal/planner
// and internal/generate (spec §1 "a complete repository still needs a
// concrete, if narrow, implementation of those collaborators").
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/nativebuild/nbs/internal/msg"
)

var (
	flagConfig    string
	flagBuildType BuildTypeValue = NewBuildTypeValue("debug")
	flagGenerator EnumValue      = NewEnumValue("build", map[string]string{
		"build":       "Compile the package with the configured D compiler (default)",
		"visuald":     "Generate Visual D project files",
		"sublimetext": "Generate Sublime Text project files",
		"cmake":       "Generate CMake project files",
	})
	flagForce  bool
	flagRDMD   bool
	flagDirect bool
)

func doBuild(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}
	if err := runBuild(target, buildOptions{
		config:    flagConfig,
		buildType: flagBuildType.Value(),
		generator: flagGenerator.Value(),
		force:     flagForce,
		rdmd:      flagRDMD,
		direct:    flagDirect,
	}); err != nil {
		msg.Fatal("%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nbs [target path]",
	Short: "Native build orchestration core",
	Long:  `A package-based native build tool: compiles a manifest-described dependency graph with a pluggable D compiler driver.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

var buildCmd = &cobra.Command{
	Use:   "build [target path]",
	Short: "Build the package",
	Long:  `Build the package. If no target path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doBuild,
}

func init() {
	addBuildFlags(rootCmd)

	rootCmd.AddCommand(buildCmd)
	addBuildFlags(buildCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Build the given configuration (default: manifest default)")
	cmd.Flags().VarP(&flagBuildType, "build", "b", "Build type, one of "+flagBuildType.HelpString())
	cmd.RegisterFlagCompletionFunc("build", flagBuildType.CompletionFunc())
	cmd.Flags().VarP(&flagGenerator, "gen", "g", "Generator to build with, one of "+flagGenerator.HelpString())
	cmd.RegisterFlagCompletionFunc("gen", flagGenerator.CompletionFunc())
	cmd.Flags().BoolVar(&flagForce, "force", false, "Force a rebuild even if the cache is up to date")
	cmd.Flags().BoolVar(&flagRDMD, "rdmd", false, "Build the root target all at once with rdmd semantics")
	cmd.Flags().BoolVar(&flagDirect, "direct", false, "Bypass the build cache and write straight to targetPath")
}

// Execute runs the CLI, exiting the process with a non-zero status on
// failure (teacher: root.go's Execute).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

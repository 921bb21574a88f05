// nbs run [path] [-- args...]
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/nativebuild/nbs/internal/msg"
)

var (
	flagRunWatch bool
	flagRunBuild BuildTypeValue = NewBuildTypeValue("debug")
)

func doRun(cmd *cobra.Command, args []string) {
	target := "."
	var runArgs []string
	if len(args) > 0 {
		target = args[0]
		runArgs = args[1:]
	}
	if err := runBuild(target, buildOptions{
		buildType: flagRunBuild.Value(),
		generator: "build",
		run:       true,
		watch:     flagRunWatch,
		runArgs:   runArgs,
	}); err != nil {
		msg.Fatal("%v", err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [target path] [-- args...]",
	Short: "Build and run the package",
	Long:  `Build and run the package. If no target path is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&flagRunWatch, "watch", "w", false, "Rebuild and rerun on source changes")
	runCmd.Flags().VarP(&flagRunBuild, "build", "b", "Build type, one of "+flagRunBuild.HelpString())
	runCmd.RegisterFlagCompletionFunc("build", flagRunBuild.CompletionFunc())
}

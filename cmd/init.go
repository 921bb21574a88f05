// nbs init [name], nbs new [path]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/nativebuild/nbs/internal/msg"
)

func writeFileIfAbsent(content string, elem ...string) {
	path := filepath.Join(elem...)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			msg.Fatal("create file %s: %v", path, err)
		}
		fmt.Printf("%s file: %s\n", color.HiGreenString("Created"), filepath.ToSlash(path))
	}
}

func mkdirAll(elem ...string) {
	path := filepath.Join(elem...)
	if err := os.MkdirAll(path, 0o755); err != nil {
		msg.Fatal("mkdir %s: %v", path, err)
	}
}

func programName() string {
	if len(os.Args) == 0 {
		return "nbs"
	}
	base := filepath.Base(os.Args[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// initIn scaffolds a new manifest and source tree in dir, named name.
func initIn(dir, name string, lib bool) {
	targetType := "executable"
	if lib {
		targetType = "staticLibrary"
	}
	writeFileIfAbsent(fmt.Sprintf(`[package]
name = "%s"
version = "0.1.0"
authors = []

[target]
type = "%s"
sourceFiles = ["source/**/*.d"]
importPaths = ["source"]

[dependencies]
`, name, targetType), dir, "Project.toml")

	mkdirAll(dir, "source")

	if lib {
		writeFileIfAbsent(fmt.Sprintf(`module %s;

void helloWorld() {
	import std.stdio : writeln;
	writeln("Hello, World!");
}
`, name), dir, "source", name+".d")
	} else {
		writeFileIfAbsent(`void main() {
	import std.stdio : writeln;
	writeln("Hello, World!");
}
`, dir, "source", "app.d")
	}

	writeFileIfAbsent(".nbs-deps/\n.buildcache/\n", dir, ".gitignore")

	prog := programName()
	fmt.Printf("You can now do %s to build, or %s to build and run.\n",
		color.HiCyanString(prog+" "+dir), color.HiCyanString(prog+" run "+dir))
}

var initLib bool

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new package in the current directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		initIn(".", args[0], initLib)
	},
}

var newCmd = &cobra.Command{
	Use:   "new [path]",
	Short: "Create a new package in a new directory",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mkdirAll(args[0])
		initIn(args[0], filepath.Base(args[0]), initLib)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initLib, "lib", "l", false, "Create a static library target")

	rootCmd.AddCommand(newCmd)
	newCmd.Flags().BoolVarP(&initLib, "lib", "l", false, "Create a static library target")
}

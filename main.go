package main

import "github.com/nativebuild/nbs/cmd"

func main() {
	cmd.Execute()
}

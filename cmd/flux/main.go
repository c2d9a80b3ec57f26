// Command flux runs and checks scripted dispatcher scenarios.
package main

import (
	"os"

	"github.com/roach88/flux/internal/cli"
)

func main() {
	os.Exit(cli.GetExitCode(cli.NewRootCommand().Execute()))
}

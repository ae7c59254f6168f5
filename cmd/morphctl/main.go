// Command morphctl lists morph devices and runs morphology pipelines on
// image files.
package main

import (
	"os"

	"github.com/gogpu/morph/cmd/morphctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

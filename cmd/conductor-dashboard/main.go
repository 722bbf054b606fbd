// Command conductor-dashboard is a terminal dashboard for conductor tracks.
package main

import (
	"os"

	"github.com/vanderheijden86/conductor-dashboard/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

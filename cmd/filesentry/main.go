// Filesentry detects file changes against a content baseline.
package main

import (
	"os"

	"github.com/albertocavalcante/filesentry/cmd/filesentry/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

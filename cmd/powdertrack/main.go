// Command powdertrack manages DMLS process records from the terminal.
package main

import (
	"os"

	"github.com/mesh-intelligence/powdertrack/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

// Command roster manages an employee shift roster.
package main

import (
	"os"

	"github.com/roach88/roster/internal/cli"
)

var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}

// The main package for the billboard executable.
package main

import (
	"github.com/JakeFAU/billboard-charts/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}

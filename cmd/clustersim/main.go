// Command clustersim runs the cluster-and-trip epidemic simulation.
package main

import (
	"os"

	"github.com/talgya/cluster-trip/cmd/clustersim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

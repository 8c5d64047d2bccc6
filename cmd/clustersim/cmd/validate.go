package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/engine"
)

func newValidateCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a configuration and build its population without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			// Initial ICU occupants only show up once the population exists.
			if _, err := engine.New(cfg, seed); err != nil {
				return err
			}

			clusters := 0
			for _, sub := range cfg.GraphGeneration {
				clusters += sub.NumClusters
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"%s: ok, %s persons in %s clusters, %d categories, %d events, %d ICUs\n",
				args[0],
				humanize.Comma(int64(cfg.NumPersons())),
				humanize.Comma(int64(clusters)),
				cfg.NumCategories(),
				len(cfg.Simulation.Events),
				cfg.Simulation.NumICUs,
			)
			return err
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for building the population")
	return cmd
}

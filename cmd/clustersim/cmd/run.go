package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/engine"
	"github.com/talgya/cluster-trip/internal/persistence"
)

func newRunCmd(v *viper.Viper) *cobra.Command {
	var (
		seed   int64
		out    string
		format string
		save   bool
	)

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Run one simulation and write its result document",
		Long: `Runs a single simulation from a YAML, JSON or TOML configuration and writes the
result document (run id, stopping condition, per-day stats, configuration) to
stdout or --out. With --save the run is also stored in the results database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}

			sim, err := engine.New(cfg, seed)
			if err != nil {
				return err
			}
			result, err := sim.Run(nil)
			if err != nil {
				return err
			}

			if save {
				db, err := openDB(v)
				if err != nil {
					return err
				}
				defer db.Close()
				switch err := db.SaveRun(result); {
				case errors.Is(err, persistence.ErrRunExists):
					slog.Info("run already saved", "run_id", result.RunID, "db", v.GetString(keyDB))
				case err != nil:
					return err
				default:
					slog.Info("run saved", "run_id", result.RunID, "db", v.GetString(keyDB))
				}
			}

			return writeDocument(cmd.OutOrStdout(), out, format, result.Document())
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the result here instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "output format: json or yaml (default from --out extension, else json)")
	cmd.Flags().BoolVar(&save, "save", false, "store the run in the results database")

	return cmd
}

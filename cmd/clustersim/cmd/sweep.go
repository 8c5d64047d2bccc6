package cmd

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/sweep"
)

func newSweepCmd(v *viper.Viper) *cobra.Command {
	var (
		configPath string
		out        string
		format     string
		save       bool
	)

	cmd := &cobra.Command{
		Use:   "sweep <plan>",
		Short: "Run a parameter grid over several seeds and summarize every run",
		Long: `Expands the plan's axes into a grid, runs every grid point once per seed on a
copy of the base configuration, and writes the sweep report: per-run summaries
and the share of runs without ICU overflow for each point.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := sweep.LoadPlan(args[0])
			if err != nil {
				return err
			}
			if configPath != "" {
				plan.Config = configPath
			}
			if plan.Config == "" {
				return errors.New("plan names no base config; set config in the plan or pass --config")
			}
			if workers := v.GetInt(keyWorkers); workers > 0 {
				plan.Workers = workers
			}

			base, err := config.Load(plan.Config)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !save {
				report, err := sweep.Run(ctx, base, plan, nil)
				if err != nil {
					return err
				}
				logReport(report)
				return writeDocument(cmd.OutOrStdout(), out, format, report)
			}

			db, err := openDB(v)
			if err != nil {
				return err
			}
			defer db.Close()

			// Runs are stored as they finish; the sweep row goes in last.
			report, err := sweep.Run(ctx, base, plan, db.SaveSweepRun)
			if err != nil {
				return err
			}
			if err := db.SaveSweep(report); err != nil {
				return err
			}
			logReport(report)
			return writeDocument(cmd.OutOrStdout(), out, format, report)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "base config, overriding the plan's")
	cmd.Flags().Int(keyWorkers, 0, "concurrent runs (default from the plan)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report here instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "output format: json or yaml (default from --out extension, else json)")
	cmd.Flags().BoolVar(&save, "save", false, "store the sweep and every run in the results database")
	_ = v.BindPFlag(keyWorkers, cmd.Flags().Lookup(keyWorkers))

	return cmd
}

func logReport(report *sweep.Report) {
	for _, pt := range report.Points {
		slog.Info("sweep point",
			"point", pt.Point.String(),
			"runs", len(pt.Runs),
			"success_ratio", pt.SuccessRatio,
		)
	}
}

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/cluster-trip/internal/api"
	"github.com/talgya/cluster-trip/internal/version"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs and sweeps over a read-only HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
			defer stop()

			db, err := openDB(v)
			if err != nil {
				return err
			}
			defer db.Close()

			srv := &api.Server{
				DB:        db,
				Addr:      v.GetString(keyListen),
				Version:   version.Short(),
				RateLimit: v.GetInt(keyRateLimit),
			}
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String(keyListen, ":8080", "listen address")
	cmd.Flags().Int(keyRateLimit, 120, "requests per minute per client IP, 0 to disable")
	_ = v.BindPFlag(keyListen, cmd.Flags().Lookup(keyListen))
	_ = v.BindPFlag(keyRateLimit, cmd.Flags().Lookup(keyRateLimit))

	return cmd
}

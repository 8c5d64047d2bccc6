package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/talgya/cluster-trip/internal/engine"
	"github.com/talgya/cluster-trip/internal/plot"
)

func newPlotCmd(v *viper.Viper) *cobra.Command {
	var (
		runID  string
		out    string
		series []string
		title  string
		width  int
		height int
	)

	cmd := &cobra.Command{
		Use:   "plot [result]",
		Short: "Draw the daily series of a result as a PNG or SVG chart",
		Long: `Draws the daily counts of a result document written by "run", or of a run
stored in the results database (--run), with a marker on every event day.
The image format follows the --out extension (.png or .svg).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if (len(args) == 1) == (runID != "") {
				return errors.New("give either a result file or --run, not both")
			}

			var (
				doc engine.Document
				err error
			)
			if runID != "" {
				doc, err = storedDocument(v, runID)
			} else {
				doc, err = readDocument(args[0])
			}
			if err != nil {
				return err
			}

			if title == "" {
				title = "run " + doc.RunID
			}
			opts := plot.Options{
				Series: series,
				Title:  title,
				Width:  width,
				Height: height,
				Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), "."),
			}

			f, err := os.Create(filepath.Clean(out))
			if err != nil {
				return fmt.Errorf("create plot: %w", err)
			}
			if err := plot.Render(f, doc, opts); err != nil {
				f.Close()
				os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			slog.Info("plot written", "run_id", doc.RunID, "path", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "plot a stored run from the results database")
	cmd.Flags().StringVarP(&out, "out", "o", "plot.png", "image path, .png or .svg")
	cmd.Flags().StringSliceVar(&series, "series", nil, "series to draw (default every disease state)")
	cmd.Flags().StringVar(&title, "title", "", "chart title (default the run id)")
	cmd.Flags().IntVar(&width, "width", 1024, "image width")
	cmd.Flags().IntVar(&height, "height", 600, "image height")

	return cmd
}

// readDocument decodes a result document; YAML is a superset of JSON.
func readDocument(path string) (engine.Document, error) {
	var doc engine.Document
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return doc, fmt.Errorf("read result: %w", err)
	}
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return doc, fmt.Errorf("decode result: %w", err)
	}
	return doc, nil
}

func storedDocument(v *viper.Viper, runID string) (engine.Document, error) {
	db, err := openDB(v)
	if err != nil {
		return engine.Document{}, err
	}
	defer db.Close()

	result, err := db.GetRun(runID)
	if err != nil {
		return engine.Document{}, err
	}
	return result.Document(), nil
}

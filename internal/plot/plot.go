// Package plot renders the daily series of a result document as a line
// chart, with a dashed marker on every event day.
package plot

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/engine"
)

// Output formats.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

var (
	// ErrTooShort is returned for documents with fewer than two days.
	ErrTooShort = errors.New("need at least two simulated days to plot")
	// ErrUnknownSeries is returned when a requested series is not in the document.
	ErrUnknownSeries = errors.New("unknown series")
)

var eventColor = drawing.Color{R: 120, G: 120, B: 120, A: 255}

// Options controls what is drawn.
type Options struct {
	// Series to draw, in order. Empty means every disease state.
	Series []string
	Title  string
	Width  int
	Height int
	// Format is FormatPNG or FormatSVG; empty means PNG.
	Format string
}

// DefaultSeries lists the state series drawn when none are requested.
func DefaultSeries() []string {
	names := make([]string, 0, agents.NumStates)
	for _, st := range agents.AllStates() {
		names = append(names, st.String())
	}
	return names
}

// Chart builds the chart for doc without rendering it.
func Chart(doc engine.Document, opts Options) (*chart.Chart, error) {
	names := opts.Series
	if len(names) == 0 {
		names = DefaultSeries()
	}

	days := 0
	for _, values := range doc.Stats {
		days = max(days, len(values))
	}
	if days < 2 {
		return nil, ErrTooShort
	}

	xs := make([]float64, days)
	for i := range xs {
		xs[i] = float64(i)
	}

	top := 1.0
	series := make([]chart.Series, 0, len(names))
	for _, name := range names {
		values, ok := doc.Stats[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSeries, name)
		}
		ys := make([]float64, days)
		for i, v := range values {
			ys[i] = float64(v)
			top = max(top, ys[i])
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeWidth: 2},
		})
	}

	if doc.Config != nil {
		for _, ev := range sortedEvents(doc) {
			if ev.Day >= days {
				continue
			}
			label := ev.Label
			if label == "" {
				label = fmt.Sprintf("day %d", ev.Day)
			}
			series = append(series, chart.ContinuousSeries{
				Name:    label,
				XValues: []float64{float64(ev.Day), float64(ev.Day)},
				YValues: []float64{0, top},
				Style: chart.Style{
					StrokeColor:     eventColor,
					StrokeWidth:     1,
					StrokeDashArray: []float64{4, 4},
				},
			})
		}
	}

	graph := &chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Right: 20},
		},
		XAxis: chart.XAxis{
			Name:  "day",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(days - 1)},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "persons",
			Range: &chart.ContinuousRange{Min: 0, Max: top},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(graph)}
	return graph, nil
}

// Render draws doc to w.
func Render(w io.Writer, doc engine.Document, opts Options) error {
	graph, err := Chart(doc, opts)
	if err != nil {
		return err
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatPNG:
		return graph.Render(chart.PNG, w)
	case FormatSVG:
		return graph.Render(chart.SVG, w)
	default:
		return fmt.Errorf("plot format %q: want png or svg", opts.Format)
	}
}

func sortedEvents(doc engine.Document) []eventMark {
	marks := make([]eventMark, 0, len(doc.Config.Simulation.Events))
	for _, ev := range doc.Config.Simulation.Events {
		marks = append(marks, eventMark{Day: ev.Day, Label: ev.Label})
	}
	slices.SortStableFunc(marks, func(a, b eventMark) int { return a.Day - b.Day })
	return marks
}

type eventMark struct {
	Day   int
	Label string
}

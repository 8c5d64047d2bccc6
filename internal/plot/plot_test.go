package plot

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"

	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/engine"
)

func testDocument() engine.Document {
	stats := make(map[string][]int)
	for _, name := range engine.SeriesNames() {
		stats[name] = []int{0, 0, 0, 0}
	}
	stats["susceptible"] = []int{10, 8, 5, 4}
	stats["infectious"] = []int{0, 2, 4, 3}
	stats["immune"] = []int{0, 0, 1, 3}

	cfg := &config.Config{}
	cfg.Simulation.Events = []config.Event{
		{Day: 2, Label: "lockdown"},
		{Day: 1},
		{Day: 9, Label: "never reached"},
	}
	return engine.Document{RunID: "r", Stats: stats, Config: cfg}
}

func seriesNames(graph *chart.Chart) []string {
	names := make([]string, 0, len(graph.Series))
	for _, s := range graph.Series {
		names = append(names, s.GetName())
	}
	return names
}

func TestChartSeriesAndEvents(t *testing.T) {
	t.Parallel()

	graph, err := Chart(testDocument(), Options{Series: []string{"susceptible", "infectious"}})
	require.NoError(t, err)

	// Events come after the data series, in day order; day 9 is past the end.
	assert.Equal(t, []string{"susceptible", "infectious", "day 1", "lockdown"}, seriesNames(graph))

	first, ok := graph.Series[1].(chart.ContinuousSeries)
	require.True(t, ok)
	assert.Equal(t, []float64{0, 2, 4, 3}, first.YValues)
	assert.Equal(t, []float64{0, 1, 2, 3}, first.XValues)
}

func TestChartDefaultsToStates(t *testing.T) {
	t.Parallel()

	doc := testDocument()
	doc.Config = nil
	graph, err := Chart(doc, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSeries(), seriesNames(graph))
}

func TestChartErrors(t *testing.T) {
	t.Parallel()

	_, err := Chart(testDocument(), Options{Series: []string{"zombies"}})
	require.ErrorIs(t, err, ErrUnknownSeries)

	short := engine.Document{Stats: map[string][]int{"susceptible": {4}}}
	_, err = Chart(short, Options{})
	require.ErrorIs(t, err, ErrTooShort)
}

func TestRender(t *testing.T) {
	t.Parallel()

	var png bytes.Buffer
	require.NoError(t, Render(&png, testDocument(), Options{Title: "run r"}))
	assert.True(t, bytes.HasPrefix(png.Bytes(), []byte("\x89PNG")))

	var svg bytes.Buffer
	require.NoError(t, Render(&svg, testDocument(), Options{Format: "SVG"}))
	assert.Contains(t, svg.String(), "<svg")

	require.Error(t, Render(&bytes.Buffer{}, testDocument(), Options{Format: "gif"}))
}

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/engine"
	"github.com/talgya/cluster-trip/internal/persistence"
	"github.com/talgya/cluster-trip/internal/sweep"
)

const configFixture = `
graph_generation:
  - num_clusters: 6
    num_people_per_cluster: 3
    category_ratios: [1]
simulation:
  stopping_conditions:
    num_days: 8
    on_icu_overflow: false
    on_pandemic_end: false
  num_icus: 1
  mu: 1
  prob_transmission: 0.4
  k_trip: 2
  isolate_cluster_on_known_case: false
  initial_params:
    - prob_goes_on_trip: 0.5
      prob_c_trip_candidate: 0
      prob_c_neighbour_trip_candidate: 0
      prob_s_to_i: 0.05
      days_i_to_c: 2
      prob_i_to_ic: 0.2
      days_c_to_im: 3
      days_ic_to_im_or_c: 2
      prob_ic_to_d: 0.5
      prob_to_nic: 0
      prob_nic_to_d: 0
      days_nic: 2
`

const planFixture = `
name: cli
config: sim.yaml
seeds: [1, 2]
axes:
  - key: k_trip
    values: [0.5, 2]
`

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := execute(root)
	return stdout.String(), stderr.String(), err
}

func writeFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sim.yaml"), []byte(configFixture), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.yaml"), []byte(planFixture), 0o600))
	return dir
}

func TestValidate(t *testing.T) {
	dir := writeFixtures(t)

	stdout, _, err := executeCLI(t, "validate", filepath.Join(dir, "sim.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stdout, "ok, 18 persons in 6 clusters, 1 categories, 0 events, 1 ICUs")
}

func TestValidateRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation: {num_icus: -1}"), 0o600))

	_, _, err := executeCLI(t, "validate", path)
	require.Error(t, err)
}

func TestValidateBuildsPopulation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "full-icu.yaml")
	// Everyone starts in ICU but there is a single bed.
	contents := strings.Replace(configFixture, "category_ratios: [1]",
		"category_ratios: [1]\n    people_per_state_ratios: [0, 0, 0, 1, 0, 0, 0, 0]", 1)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, _, err := executeCLI(t, "validate", path)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestRunJSONToStdout(t *testing.T) {
	dir := writeFixtures(t)

	stdout, stderr, err := executeCLI(t, "run", filepath.Join(dir, "sim.yaml"), "--seed", "4")
	require.NoError(t, err)
	assert.Contains(t, stderr, "simulation finished")

	var doc engine.Document
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.NotEmpty(t, doc.RunID)
	assert.Equal(t, int64(4), doc.Seed)
	assert.Contains(t, doc.Stats, "nocorona_dead")
	assert.Contains(t, doc.Stats, engine.SeriesICUsLeft)
}

func TestRunYAMLFileAndSave(t *testing.T) {
	dir := writeFixtures(t)
	out := filepath.Join(dir, "result.yml")
	dbPath := filepath.Join(dir, "data", "results.db")

	_, _, err := executeCLI(t, "run", filepath.Join(dir, "sim.yaml"),
		"--out", out, "--save", "--db", dbPath, "--log-format", "json")
	require.NoError(t, err)

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc engine.Document
	require.NoError(t, yaml.Unmarshal(contents, &doc))
	require.NotEmpty(t, doc.RunID)

	db, err := persistence.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	stored, err := db.GetRun(doc.RunID)
	require.NoError(t, err)
	assert.Equal(t, doc.Stats, stored.Stats())
}

func TestRunIsReproducible(t *testing.T) {
	dir := writeFixtures(t)
	dbPath := filepath.Join(dir, "results.db")
	args := []string{"run", filepath.Join(dir, "sim.yaml"), "--seed", "9", "--save", "--db", dbPath}

	first, _, err := executeCLI(t, args...)
	require.NoError(t, err)
	second, stderr, err := executeCLI(t, args...)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, stderr, "run already saved")

	db, err := persistence.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	dir := writeFixtures(t)

	_, stderr, err := executeCLI(t, "run", filepath.Join(dir, "sim.yaml"), "--format", "xml")
	require.Error(t, err)
	// Failures go through slog only; cobra does not print them again.
	assert.Contains(t, stderr, `level=ERROR msg="clustersim failed"`)
	assert.NotContains(t, stderr, "Error:")
}

func TestSweepSaves(t *testing.T) {
	dir := writeFixtures(t)
	dbPath := filepath.Join(dir, "results.db")

	stdout, _, err := executeCLI(t, "sweep", filepath.Join(dir, "plan.yaml"),
		"--workers", "2", "--save", "--db", dbPath)
	require.NoError(t, err)

	var report sweep.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	require.Len(t, report.Points, 2)
	for _, pt := range report.Points {
		assert.Len(t, pt.Runs, 2)
	}

	db, err := persistence.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.SweepRuns(report.SweepID)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
	_, err = db.GetSweep(report.SweepID)
	require.NoError(t, err)
}

func TestWorkersFromEnvironment(t *testing.T) {
	dir := writeFixtures(t)
	t.Setenv("EPISIM_WORKERS", "3")
	t.Setenv("EPISIM_LOG_LEVEL", "debug")

	_, stderr, err := executeCLI(t, "sweep", filepath.Join(dir, "plan.yaml"))
	require.NoError(t, err)
	assert.Contains(t, stderr, "workers=3")
	assert.Contains(t, stderr, "level=DEBUG")
}

func TestSettingsFile(t *testing.T) {
	dir := writeFixtures(t)
	settings := filepath.Join(dir, "settings.toml")
	require.NoError(t, os.WriteFile(settings, []byte("log-level = \"warn\"\n"), 0o600))

	_, stderr, err := executeCLI(t, "--settings", settings, "run", filepath.Join(dir, "sim.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, stderr, "simulation finished")
}

func TestBadLogLevel(t *testing.T) {
	dir := writeFixtures(t)

	_, _, err := executeCLI(t, "--log-level", "chatty", "validate", filepath.Join(dir, "sim.yaml"))
	require.Error(t, err)
}

func TestResolveFormat(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		flag, out, want string
	}{
		{"", "", formatJSON},
		{"", "r.yaml", formatYAML},
		{"", "r.YML", formatYAML},
		{"", "r.json", formatJSON},
		{"yaml", "r.json", formatYAML},
		{"JSON", "", formatJSON},
	} {
		got, err := resolveFormat(tt.flag, tt.out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%+v", tt)
	}
}

func TestPlot(t *testing.T) {
	dir := writeFixtures(t)
	result := filepath.Join(dir, "result.json")
	dbPath := filepath.Join(dir, "results.db")

	_, _, err := executeCLI(t, "run", filepath.Join(dir, "sim.yaml"), "--out", result, "--save", "--db", dbPath)
	require.NoError(t, err)

	png := filepath.Join(dir, "run.png")
	_, _, err = executeCLI(t, "plot", result, "--out", png, "--series", "susceptible,infectious")
	require.NoError(t, err)
	contents, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(contents, []byte("\x89PNG")))

	doc, err := readDocument(result)
	require.NoError(t, err)
	svg := filepath.Join(dir, "stored.svg")
	_, _, err = executeCLI(t, "plot", "--run", doc.RunID, "--db", dbPath, "--out", svg)
	require.NoError(t, err)
	contents, err = os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "<svg")

	_, _, err = executeCLI(t, "plot", result, "--run", doc.RunID)
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.png")
	_, _, err = executeCLI(t, "plot", result, "--out", bad, "--series", "zombies")
	require.Error(t, err)
	assert.NoFileExists(t, bad)
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "version: ")
}

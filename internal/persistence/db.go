// Package persistence provides SQLite-based storage of finished runs and
// sweeps. Only completed results are stored; a run in progress never is.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/cluster-trip/internal/agents"
	"github.com/talgya/cluster-trip/internal/config"
	"github.com/talgya/cluster-trip/internal/engine"
	"github.com/talgya/cluster-trip/internal/sweep"
)

var (
	// ErrNotFound is returned when a run or sweep does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRunExists is returned when a run id is already stored. Run ids
	// follow the configuration and seed, so the stored run is the same run.
	ErrRunExists = errors.New("run already stored")
)

// DB wraps a SQLite connection for result storage.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; sweeps serialize their inserts through the sink anyway.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		sweep_id TEXT,
		point_json TEXT,
		seed INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		stopping_condition TEXT NOT NULL,
		num_days_icu_overflow INTEGER NOT NULL,
		first_day_icu_overflow INTEGER NOT NULL,
		last_day_icu_overflow INTEGER NOT NULL,
		days_simulated INTEGER NOT NULL,
		config_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_days (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		susceptible INTEGER NOT NULL,
		infectious INTEGER NOT NULL,
		confirmed INTEGER NOT NULL,
		icu INTEGER NOT NULL,
		dead INTEGER NOT NULL,
		immune INTEGER NOT NULL,
		nocorona_icu INTEGER NOT NULL,
		nocorona_dead INTEGER NOT NULL,
		on_trip INTEGER NOT NULL,
		on_trip_cluster_corona INTEGER NOT NULL,
		able_cluster_corona INTEGER NOT NULL,
		contagious_on_trip INTEGER NOT NULL,
		infected_on_trip INTEGER NOT NULL,
		icu_overflow INTEGER NOT NULL,
		icus_left INTEGER NOT NULL,
		system_load REAL NOT NULL,
		PRIMARY KEY (run_id, day)
	);

	CREATE TABLE IF NOT EXISTS sweeps (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_sweep ON runs(sweep_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RunRecord is the stored header of a run.
type RunRecord struct {
	ID                  string  `db:"id" json:"id"`
	SweepID             *string `db:"sweep_id" json:"sweep_id,omitempty"`
	PointJSON           *string `db:"point_json" json:"-"`
	Seed                int64   `db:"seed" json:"seed"`
	CreatedAt           string  `db:"created_at" json:"created_at"`
	StoppingCondition   string  `db:"stopping_condition" json:"stopping_condition"`
	NumDaysICUOverflow  int     `db:"num_days_icu_overflow" json:"num_days_icu_overflow"`
	FirstDayICUOverflow int     `db:"first_day_icu_overflow" json:"first_day_icu_overflow"`
	LastDayICUOverflow  int     `db:"last_day_icu_overflow" json:"last_day_icu_overflow"`
	DaysSimulated       int     `db:"days_simulated" json:"days_simulated"`
}

// Point decodes the sweep point the run belongs to, if any.
func (r RunRecord) Point() (sweep.Point, error) {
	if r.PointJSON == nil {
		return nil, nil
	}
	var pt sweep.Point
	if err := json.Unmarshal([]byte(*r.PointJSON), &pt); err != nil {
		return nil, fmt.Errorf("decode point of run %s: %w", r.ID, err)
	}
	return pt, nil
}

type dayRow struct {
	RunID               string  `db:"run_id"`
	Day                 int     `db:"day"`
	Susceptible         int     `db:"susceptible"`
	Infectious          int     `db:"infectious"`
	Confirmed           int     `db:"confirmed"`
	ICU                 int     `db:"icu"`
	Dead                int     `db:"dead"`
	Immune              int     `db:"immune"`
	NoCoronaICU         int     `db:"nocorona_icu"`
	NoCoronaDead        int     `db:"nocorona_dead"`
	OnTrip              int     `db:"on_trip"`
	OnTripClusterCorona int     `db:"on_trip_cluster_corona"`
	AbleClusterCorona   int     `db:"able_cluster_corona"`
	ContagiousOnTrip    int     `db:"contagious_on_trip"`
	InfectedOnTrip      int     `db:"infected_on_trip"`
	ICUOverflow         bool    `db:"icu_overflow"`
	ICUsLeft            int     `db:"icus_left"`
	SystemLoad          float64 `db:"system_load"`
}

func toDayRow(runID string, d engine.DayStats) dayRow {
	return dayRow{
		RunID:               runID,
		Day:                 d.Day,
		Susceptible:         d.Counts[agents.StateSusceptible],
		Infectious:          d.Counts[agents.StateInfectious],
		Confirmed:           d.Counts[agents.StateConfirmed],
		ICU:                 d.Counts[agents.StateICU],
		Dead:                d.Counts[agents.StateDead],
		Immune:              d.Counts[agents.StateImmune],
		NoCoronaICU:         d.Counts[agents.StateNoCoronaICU],
		NoCoronaDead:        d.Counts[agents.StateNoCoronaDead],
		OnTrip:              d.Trip.OnTrip,
		OnTripClusterCorona: d.Trip.OnTripWithClusterCorona,
		AbleClusterCorona:   d.Trip.AbleWithClusterCorona,
		ContagiousOnTrip:    d.Trip.Contagious,
		InfectedOnTrip:      d.Trip.Infected,
		ICUOverflow:         d.ICUOverflow,
		ICUsLeft:            d.ICUsLeft,
		SystemLoad:          d.SystemLoad,
	}
}

func (r dayRow) stats() engine.DayStats {
	d := engine.DayStats{
		Day: r.Day,
		Trip: engine.TripStats{
			OnTrip:                  r.OnTrip,
			OnTripWithClusterCorona: r.OnTripClusterCorona,
			AbleWithClusterCorona:   r.AbleClusterCorona,
			Contagious:              r.ContagiousOnTrip,
			Infected:                r.InfectedOnTrip,
		},
		ICUOverflow: r.ICUOverflow,
		ICUsLeft:    r.ICUsLeft,
		SystemLoad:  r.SystemLoad,
	}
	d.Counts[agents.StateSusceptible] = r.Susceptible
	d.Counts[agents.StateInfectious] = r.Infectious
	d.Counts[agents.StateConfirmed] = r.Confirmed
	d.Counts[agents.StateICU] = r.ICU
	d.Counts[agents.StateDead] = r.Dead
	d.Counts[agents.StateImmune] = r.Immune
	d.Counts[agents.StateNoCoronaICU] = r.NoCoronaICU
	d.Counts[agents.StateNoCoronaDead] = r.NoCoronaDead
	return d
}

// SaveRun stores a standalone run with its full history.
func (db *DB) SaveRun(r *engine.Result) error {
	return db.saveRun(r, nil, nil)
}

// SaveSweepRun stores one run of a sweep. It has the signature of a
// sweep.Sink.
func (db *DB) SaveSweepRun(sweepID string, o sweep.Outcome) error {
	pointJSON, err := json.Marshal(o.Point)
	if err != nil {
		return fmt.Errorf("encode point: %w", err)
	}
	pj := string(pointJSON)
	return db.saveRun(o.Result, &sweepID, &pj)
}

func (db *DB) saveRun(r *engine.Result, sweepID, pointJSON *string) error {
	if r == nil {
		return errors.New("save run: no result")
	}
	configJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stored int
	if err := tx.Get(&stored, "SELECT COUNT(*) FROM runs WHERE id = ?", r.RunID); err != nil {
		return fmt.Errorf("look up run %s: %w", r.RunID, err)
	}
	if stored > 0 {
		return fmt.Errorf("%w: %s", ErrRunExists, r.RunID)
	}

	_, err = tx.Exec(`INSERT INTO runs
		(id, sweep_id, point_json, seed, created_at, stopping_condition,
		 num_days_icu_overflow, first_day_icu_overflow, last_day_icu_overflow,
		 days_simulated, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, sweepID, pointJSON, r.Seed, time.Now().UTC().Format(time.RFC3339Nano),
		string(r.StoppingCondition), r.NumDaysICUOverflow, r.FirstDayICUOverflow,
		r.LastDayICUOverflow, r.DaysSimulated(), string(configJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO run_days
		(run_id, day, susceptible, infectious, confirmed, icu, dead, immune,
		 nocorona_icu, nocorona_dead, on_trip, on_trip_cluster_corona,
		 able_cluster_corona, contagious_on_trip, infected_on_trip,
		 icu_overflow, icus_left, system_load)
		VALUES (:run_id, :day, :susceptible, :infectious, :confirmed, :icu, :dead, :immune,
		 :nocorona_icu, :nocorona_dead, :on_trip, :on_trip_cluster_corona,
		 :able_cluster_corona, :contagious_on_trip, :infected_on_trip,
		 :icu_overflow, :icus_left, :system_load)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range r.History {
		if _, err := stmt.Exec(toDayRow(r.RunID, d)); err != nil {
			return fmt.Errorf("insert day %d of run %s: %w", d.Day, r.RunID, err)
		}
	}

	return tx.Commit()
}

// SaveSweep stores a sweep report. Its runs are stored separately as they
// finish.
func (db *DB) SaveSweep(report *sweep.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode sweep report: %w", err)
	}
	_, err = db.conn.Exec(
		"INSERT OR REPLACE INTO sweeps (id, name, created_at, report_json) VALUES (?, ?, ?, ?)",
		report.SweepID, report.Name, time.Now().UTC().Format(time.RFC3339Nano), string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("insert sweep %s: %w", report.SweepID, err)
	}
	slog.Info("sweep saved", "sweep_id", report.SweepID, "points", len(report.Points))
	return nil
}

// GetSweep loads a stored sweep report.
func (db *DB) GetSweep(id string) (*sweep.Report, error) {
	var reportJSON string
	err := db.conn.Get(&reportJSON, "SELECT report_json FROM sweeps WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sweep %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var report sweep.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("decode sweep %s: %w", id, err)
	}
	return &report, nil
}

const runColumns = `id, sweep_id, point_json, seed, created_at, stopping_condition,
	num_days_icu_overflow, first_day_icu_overflow, last_day_icu_overflow, days_simulated`

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id LIMIT ?",
		limit,
	)
	return runs, err
}

// CountRuns returns the number of stored runs.
func (db *DB) CountRuns() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}

// SweepRuns returns every stored run of a sweep.
func (db *DB) SweepRuns(sweepID string) ([]RunRecord, error) {
	var runs []RunRecord
	err := db.conn.Select(&runs,
		"SELECT "+runColumns+" FROM runs WHERE sweep_id = ? ORDER BY created_at, id",
		sweepID,
	)
	return runs, err
}

// GetRunRecord loads the header of one run.
func (db *DB) GetRunRecord(id string) (*RunRecord, error) {
	var rec RunRecord
	err := db.conn.Get(&rec, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RunHistory loads the per-day records of a run in day order.
func (db *DB) RunHistory(id string) ([]engine.DayStats, error) {
	var rows []dayRow
	if err := db.conn.Select(&rows, "SELECT * FROM run_days WHERE run_id = ? ORDER BY day", id); err != nil {
		return nil, err
	}
	history := make([]engine.DayStats, len(rows))
	for i, r := range rows {
		history[i] = r.stats()
	}
	return history, nil
}

// GetRun rebuilds a stored run as a Result.
func (db *DB) GetRun(id string) (*engine.Result, error) {
	rec, err := db.GetRunRecord(id)
	if err != nil {
		return nil, err
	}

	var configJSON string
	if err := db.conn.Get(&configJSON, "SELECT config_json FROM runs WHERE id = ?", id); err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, fmt.Errorf("decode config of run %s: %w", id, err)
	}

	history, err := db.RunHistory(id)
	if err != nil {
		return nil, err
	}

	return &engine.Result{
		RunID:               rec.ID,
		Seed:                rec.Seed,
		StoppingCondition:   engine.StoppingCondition(rec.StoppingCondition),
		NumDaysICUOverflow:  rec.NumDaysICUOverflow,
		FirstDayICUOverflow: rec.FirstDayICUOverflow,
		LastDayICUOverflow:  rec.LastDayICUOverflow,
		History:             history,
		Config:              &cfg,
	}, nil
}

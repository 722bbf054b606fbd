package export

import (
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/conductor-dashboard/pkg/analysis"
	"github.com/vanderheijden86/conductor-dashboard/pkg/debug"
	"github.com/vanderheijden86/conductor-dashboard/pkg/model"
	"github.com/vanderheijden86/conductor-dashboard/pkg/version"

	_ "modernc.org/sqlite"
)

// SQLiteExporter writes tracks, their phases and tasks, the dependency
// graph and per-track graph metrics to a single SQLite file.
type SQLiteExporter struct {
	Tracks []model.Track
	Stats  analysis.GraphStats
	Root   string
	Now    time.Time
}

// NewSQLiteExporter analyzes the tracks' dependencies up front.
func NewSQLiteExporter(opts Options) *SQLiteExporter {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &SQLiteExporter{
		Tracks: opts.Tracks,
		Stats:  analysis.NewAnalyzer(opts.Tracks).Analyze(),
		Root:   opts.Root,
		Now:    now,
	}
}

// Export replaces any database at dbPath with a fresh one.
func (e *SQLiteExporter) Export(dbPath string) error {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if err := CreateSchema(db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := e.insertTracks(db); err != nil {
		return fmt.Errorf("insert tracks: %w", err)
	}
	if err := e.insertPhases(db); err != nil {
		return fmt.Errorf("insert phases: %w", err)
	}
	if err := e.insertDependencies(db); err != nil {
		return fmt.Errorf("insert dependencies: %w", err)
	}
	if err := e.insertMetrics(db); err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}

	if err := CreateFTSIndex(db); err != nil {
		debug.Warn("FTS5 not available: %v", err)
	} else if err := e.insertFTS(db); err != nil {
		return fmt.Errorf("populate FTS index: %w", err)
	}

	if err := CreateOverviewView(db); err != nil {
		return fmt.Errorf("create overview: %w", err)
	}
	if err := e.insertMeta(db); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if err := OptimizeDatabase(db); err != nil {
		return fmt.Errorf("optimize database: %w", err)
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	dbClosed = true
	return nil
}

func (e *SQLiteExporter) insertTracks(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO tracks (
			id, title, path, status, status_source, priority, track_type,
			branch, tags, description, tasks_total, tasks_completed,
			progress_percent, current_phase, last_updated, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range e.Tracks {
		tags, err := json.Marshal(t.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags for %s: %w", t.ID, err)
		}
		if _, err := stmt.Exec(
			string(t.ID),
			t.Title,
			nullString(t.Path),
			enumText(t.Status),
			enumText(t.StatusSource),
			enumText(t.Priority),
			enumText(t.Type),
			nullString(t.Branch),
			string(tags),
			nullString(t.Description),
			t.TasksTotal,
			t.TasksCompleted,
			t.ProgressPercent,
			nullString(t.CurrentPhase()),
			formatTime(&t.LastUpdated),
			formatTime(t.CreatedAt),
			formatTime(t.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert track %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertPhases(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	phaseStmt, err := tx.Prepare(`
		INSERT INTO phases (track_id, position, name, status, tasks_total, tasks_completed)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer phaseStmt.Close()

	taskStmt, err := tx.Prepare(`
		INSERT INTO tasks (track_id, phase_position, parent_id, depth, text, checked, done)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer taskStmt.Close()

	var insertTask func(trackID string, pos int, parent sql.NullInt64, depth int, task model.Task) error
	insertTask = func(trackID string, pos int, parent sql.NullInt64, depth int, task model.Task) error {
		res, err := taskStmt.Exec(trackID, pos, parent, depth, task.Text, boolToInt(task.Checked), boolToInt(task.Done()))
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, st := range task.Subtasks {
			if err := insertTask(trackID, pos, sql.NullInt64{Int64: id, Valid: true}, depth+1, st); err != nil {
				return err
			}
		}
		return nil
	}

	for _, t := range e.Tracks {
		for i, p := range t.Phases {
			total, done := p.Counts()
			if _, err := phaseStmt.Exec(string(t.ID), i, p.Name, enumText(p.Status), total, done); err != nil {
				return fmt.Errorf("insert phase %s/%d: %w", t.ID, i, err)
			}
			for _, task := range p.Tasks {
				if err := insertTask(string(t.ID), i, sql.NullInt64{}, 0, task); err != nil {
					return fmt.Errorf("insert task in %s/%d: %w", t.ID, i, err)
				}
			}
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertDependencies(db *sql.DB) error {
	known := make(map[model.TrackID]bool, len(e.Tracks))
	for _, t := range e.Tracks {
		known[t.ID] = true
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO dependencies (track_id, depends_on_id, resolved) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range e.Tracks {
		for _, dep := range t.Dependencies {
			if _, err := stmt.Exec(string(t.ID), string(dep), boolToInt(known[dep])); err != nil {
				return fmt.Errorf("insert dependency %s->%s: %w", t.ID, dep, err)
			}
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertMetrics(db *sql.DB) error {
	inCycle := make(map[model.TrackID]bool)
	for _, c := range e.Stats.Cycles {
		for _, id := range c {
			inCycle[id] = true
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO track_metrics (track_id, pagerank, dependents_count, dependencies_count, in_cycle)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range e.Tracks {
		if _, err := stmt.Exec(
			string(t.ID),
			e.Stats.PageRank[t.ID],
			e.Stats.InDegree[t.ID],
			len(t.Dependencies),
			boolToInt(inCycle[t.ID]),
		); err != nil {
			return fmt.Errorf("insert metrics for %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertFTS(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO tracks_fts (id, title, description, spec) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range e.Tracks {
		if _, err := stmt.Exec(string(t.ID), t.Title, t.Description, t.Spec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertMeta(db *sql.DB) error {
	ps := analysis.Progress(e.Tracks)
	summary, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	meta := map[string]string{
		"schema_version": fmt.Sprint(SchemaVersion),
		"exported_at":    e.Now.UTC().Format(time.RFC3339),
		"generator":      "conductor-dashboard " + version.Version,
		"conductor_dir":  e.Root,
		"track_count":    fmt.Sprint(len(e.Tracks)),
		"progress":       string(summary),
	}
	for k, v := range meta {
		if err := InsertMetaValue(db, k, v); err != nil {
			return fmt.Errorf("insert meta %s: %w", k, err)
		}
	}
	return nil
}

// enumText renders one of the model enums the way it appears in JSON.
func enumText(v interface{ MarshalText() ([]byte, error) }) string {
	b, err := v.MarshalText()
	if err != nil {
		return ""
	}
	return string(b)
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package export

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is recorded in export_meta.
const SchemaVersion = 1

// CreateSchema creates all tables and indexes in the database.
func CreateSchema(db *sql.DB) error {
	if err := createCoreTables(db); err != nil {
		return fmt.Errorf("create core tables: %w", err)
	}
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	if err := createMetaTable(db); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

func createCoreTables(db *sql.DB) error {
	tables := []struct{ name, ddl string }{
		{"tracks", `
			CREATE TABLE IF NOT EXISTS tracks (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL,
				path TEXT,
				status TEXT NOT NULL,
				status_source TEXT NOT NULL,
				priority TEXT NOT NULL,
				track_type TEXT NOT NULL,
				branch TEXT,
				tags TEXT,
				description TEXT,
				tasks_total INTEGER NOT NULL,
				tasks_completed INTEGER NOT NULL,
				progress_percent INTEGER NOT NULL,
				current_phase TEXT,
				last_updated TEXT,
				created_at TEXT,
				updated_at TEXT
			)`},
		{"phases", `
			CREATE TABLE IF NOT EXISTS phases (
				track_id TEXT NOT NULL,
				position INTEGER NOT NULL,
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				tasks_total INTEGER NOT NULL,
				tasks_completed INTEGER NOT NULL,
				PRIMARY KEY (track_id, position),
				FOREIGN KEY (track_id) REFERENCES tracks(id)
			)`},
		// Leaf and parent tasks, flattened; parent_id links subtasks.
		{"tasks", `
			CREATE TABLE IF NOT EXISTS tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				track_id TEXT NOT NULL,
				phase_position INTEGER NOT NULL,
				parent_id INTEGER,
				depth INTEGER NOT NULL,
				text TEXT NOT NULL,
				checked INTEGER NOT NULL,
				done INTEGER NOT NULL,
				FOREIGN KEY (track_id) REFERENCES tracks(id)
			)`},
		{"dependencies", `
			CREATE TABLE IF NOT EXISTS dependencies (
				track_id TEXT NOT NULL,
				depends_on_id TEXT NOT NULL,
				resolved INTEGER NOT NULL,
				PRIMARY KEY (track_id, depends_on_id)
			)`},
		{"track_metrics", `
			CREATE TABLE IF NOT EXISTS track_metrics (
				track_id TEXT PRIMARY KEY,
				pagerank REAL DEFAULT 0,
				dependents_count INTEGER DEFAULT 0,
				dependencies_count INTEGER DEFAULT 0,
				in_cycle INTEGER DEFAULT 0,
				FOREIGN KEY (track_id) REFERENCES tracks(id)
			)`},
	}
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("create %s table: %w", t.name, err)
		}
	}
	return nil
}

func createIndexes(db *sql.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_tracks_status ON tracks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_updated ON tracks(last_updated DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_progress ON tracks(progress_percent)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_track ON tasks(track_id, phase_position)`,
		`CREATE INDEX IF NOT EXISTS idx_deps_depends ON dependencies(depends_on_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func createMetaTable(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS export_meta (
			key TEXT PRIMARY KEY,
			value TEXT
		)
	`); err != nil {
		return fmt.Errorf("create export_meta table: %w", err)
	}
	return nil
}

// CreateFTSIndex creates the FTS5 table over track titles, descriptions
// and specs. Call it after tracks are inserted.
func CreateFTSIndex(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tracks_fts USING fts5(
			id,
			title,
			description,
			spec,
			tokenize='porter unicode61'
		)
	`); err != nil {
		return fmt.Errorf("create FTS5 table: %w", err)
	}
	return nil
}

// CreateOverviewView creates a denormalized table joining tracks with their
// metrics and dependency lists, for one-query list screens.
func CreateOverviewView(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS track_overview_mv AS
		SELECT
			t.id,
			t.title,
			t.status,
			t.priority,
			t.progress_percent,
			t.tasks_completed,
			t.tasks_total,
			t.current_phase,
			t.last_updated,
			COALESCE(m.pagerank, 0) AS pagerank,
			COALESCE(m.dependents_count, 0) AS dependents_count,
			COALESCE(m.in_cycle, 0) AS in_cycle,
			(SELECT GROUP_CONCAT(depends_on_id) FROM (
				SELECT depends_on_id FROM dependencies
				WHERE track_id = t.id ORDER BY depends_on_id
			)) AS blocked_by_ids,
			(SELECT GROUP_CONCAT(track_id) FROM (
				SELECT track_id FROM dependencies
				WHERE depends_on_id = t.id ORDER BY track_id
			)) AS unblocks_ids
		FROM tracks t
		LEFT JOIN track_metrics m ON t.id = m.track_id
	`); err != nil {
		return fmt.Errorf("create track_overview_mv: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_mv_status ON track_overview_mv(status)`); err != nil {
		return fmt.Errorf("create mv index: %w", err)
	}
	return nil
}

// OptimizeDatabase compacts the file. Call it last, before closing.
func OptimizeDatabase(db *sql.DB) error {
	for _, stmt := range []string{`PRAGMA journal_mode=DELETE`, `ANALYZE`, `PRAGMA optimize`} {
		// Some pragmas fail depending on state; none of them are required.
		_, _ = db.Exec(stmt)
	}
	_, _ = db.Exec(`INSERT INTO tracks_fts(tracks_fts) VALUES('optimize')`)
	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// InsertMetaValue inserts or replaces a metadata key.
func InsertMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO export_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

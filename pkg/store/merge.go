package store

import (
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
	// Logger receives one entry per source. Nil disables logging.
	Logger *zap.Logger
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	AlmanacsMerged   int
	RunsMerged       int
	RangesMerged     int
	SourcesProcessed int
}

// Merge combines multiple almanac databases into one.
// Almanacs deduplicate on digest and runs on (digest, solved_at) via
// INSERT OR IGNORE; ranges follow their run to its new id.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}
	// sql.Open creates missing files, so sources are checked first.
	for _, sourcePath := range cfg.SourcePaths {
		if _, err := os.Stat(sourcePath); err != nil {
			return nil, fmt.Errorf("source database %s: %w", sourcePath, err)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Open/create destination database
	destDB, err := sql.Open(driverName, cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	// Initialize schema on destination
	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}

	// Process each source database
	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		logger.Info("merged source",
			zap.String("source", sourcePath),
			zap.Int("almanacs", sourceStats.AlmanacsMerged),
			zap.Int("runs", sourceStats.RunsMerged),
			zap.Int("ranges", sourceStats.RangesMerged),
		)
		stats.AlmanacsMerged += sourceStats.AlmanacsMerged
		stats.RunsMerged += sourceStats.RunsMerged
		stats.RangesMerged += sourceStats.RangesMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	// Open source database
	sourceDB, err := sql.Open(driverName, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	stats := &MergeStats{}

	// Start transaction for efficiency
	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	almanacCount, err := mergeAlmanacs(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging almanacs: %w", err)
	}
	stats.AlmanacsMerged = almanacCount

	runCount, rangeCount, err := mergeRuns(tx, sourceDB)
	if err != nil {
		return nil, fmt.Errorf("merging runs: %w", err)
	}
	stats.RunsMerged = runCount
	stats.RangesMerged = rangeCount

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return stats, nil
}

func mergeAlmanacs(tx *sql.Tx, sourceDB *sql.DB) (int, error) {
	rows, err := sourceDB.Query("SELECT digest, name, almanac_json FROM almanacs")
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO almanacs (digest, name, almanac_json) VALUES (?, ?, ?)")
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for rows.Next() {
		var digest, name, data string
		if err := rows.Scan(&digest, &name, &data); err != nil {
			return count, err
		}
		result, err := stmt.Exec(digest, name, data)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}

// sourceRun is a runs row read from a source database.
type sourceRun struct {
	id                  int64
	digest, almanac     string
	stages, workers     int
	scalar, lowestRange int64
	solvedAt            string
}

func mergeRuns(tx *sql.Tx, sourceDB *sql.DB) (runs int, ranges int, err error) {
	pending, err := readSourceRuns(sourceDB)
	if err != nil {
		return 0, 0, err
	}

	runStmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO runs (digest, almanac, stages, lowest_scalar, lowest_range, workers, solved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, err
	}
	defer runStmt.Close()

	rangeStmt, err := tx.Prepare("INSERT INTO ranges (run_id, low, high) VALUES (?, ?, ?)")
	if err != nil {
		return 0, 0, err
	}
	defer rangeStmt.Close()

	for _, r := range pending {
		result, err := runStmt.Exec(r.digest, r.almanac, r.stages, r.scalar, r.lowestRange, r.workers, r.solvedAt)
		if err != nil {
			return runs, ranges, err
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			// Already present; its ranges came with it.
			continue
		}
		runs++

		newID, err := result.LastInsertId()
		if err != nil {
			return runs, ranges, err
		}
		n, err := copyRanges(rangeStmt, sourceDB, r.id, newID)
		ranges += n
		if err != nil {
			return runs, ranges, err
		}
	}
	return runs, ranges, nil
}

func readSourceRuns(sourceDB *sql.DB) ([]sourceRun, error) {
	rows, err := sourceDB.Query(`
		SELECT id, digest, almanac, stages, lowest_scalar, lowest_range, workers, solved_at
		FROM runs
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []sourceRun
	for rows.Next() {
		var r sourceRun
		if err := rows.Scan(&r.id, &r.digest, &r.almanac, &r.stages, &r.scalar, &r.lowestRange, &r.workers, &r.solvedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func copyRanges(stmt *sql.Stmt, sourceDB *sql.DB, fromID, toID int64) (int, error) {
	rows, err := sourceDB.Query("SELECT low, high FROM ranges WHERE run_id = ? ORDER BY id", fromID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var low, high int64
		if err := rows.Scan(&low, &high); err != nil {
			return count, err
		}
		if _, err := stmt.Exec(toID, low, high); err != nil {
			return count, err
		}
		count++
	}
	return count, rows.Err()
}

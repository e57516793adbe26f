package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/praetorian-inc/almanac/pkg/types"
	_ "modernc.org/sqlite"
)

// driverName is the database/sql name registered by modernc.org/sqlite.
const driverName = "sqlite"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-based store.
// Use ":memory:" for an in-memory database (useful for testing).
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database exists per connection.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Initialize schema
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddAlmanac stores an almanac keyed by its digest.
func (s *SQLiteStore) AddAlmanac(a *types.Almanac) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshaling almanac: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO almanacs (digest, name, almanac_json)
		VALUES (?, ?, ?)
	`, a.Digest(), a.Name, string(data))
	if err != nil {
		return fmt.Errorf("inserting almanac: %w", err)
	}
	return nil
}

// GetAlmanac retrieves an almanac by digest.
func (s *SQLiteStore) GetAlmanac(digest string) (*types.Almanac, error) {
	var data string
	err := s.db.QueryRow("SELECT almanac_json FROM almanacs WHERE digest = ?", digest).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("almanac %s: %w", digest, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying almanac: %w", err)
	}

	var a types.Almanac
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("unmarshaling almanac: %w", err)
	}
	return &a, nil
}

// AddRun stores a solved answer and its final ranges in one transaction.
func (s *SQLiteStore) AddRun(ans *types.Answer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO runs (digest, almanac, stages, lowest_scalar, lowest_range, workers, solved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ans.Digest,
		ans.Almanac,
		ans.Stages,
		toDB(ans.Scalar),
		toDB(ans.Range),
		ans.Workers,
		formatTime(ans.SolvedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.Prepare("INSERT INTO ranges (run_id, low, high) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing range insert: %w", err)
	}
	defer stmt.Close()

	for _, iv := range ans.Ranges {
		if _, err := stmt.Exec(id, toDB(iv.Low), toDB(iv.High)); err != nil {
			return fmt.Errorf("inserting range: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	ans.ID = id
	return nil
}

// GetRuns retrieves all runs, oldest first.
func (s *SQLiteStore) GetRuns() ([]*types.Answer, error) {
	rows, err := s.db.Query(`
		SELECT id, digest, almanac, stages, lowest_scalar, lowest_range, workers, solved_at
		FROM runs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*types.Answer
	for rows.Next() {
		ans, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, ans)
	}

	return runs, rows.Err()
}

// GetRanges retrieves the final ranges of a run in insertion order.
func (s *SQLiteStore) GetRanges(runID int64) ([]types.Interval, error) {
	rows, err := s.db.Query("SELECT low, high FROM ranges WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("querying ranges: %w", err)
	}
	defer rows.Close()

	var ranges []types.Interval
	for rows.Next() {
		var low, high int64
		if err := rows.Scan(&low, &high); err != nil {
			return nil, fmt.Errorf("scanning range: %w", err)
		}
		ranges = append(ranges, types.Interval{Low: fromDB(low), High: fromDB(high)})
	}

	return ranges, rows.Err()
}

// LatestRun retrieves the most recent run for a digest.
func (s *SQLiteStore) LatestRun(digest string) (*types.Answer, error) {
	row := s.db.QueryRow(`
		SELECT id, digest, almanac, stages, lowest_scalar, lowest_range, workers, solved_at
		FROM runs
		WHERE digest = ?
		ORDER BY id DESC
		LIMIT 1
	`, digest)

	ans, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run for %s: %w", digest, ErrNotFound)
	}
	return ans, err
}

// RunExists checks if a digest has been solved before.
func (s *SQLiteStore) RunExists(digest string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE digest = ?", digest).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking run existence: %w", err)
	}
	return count > 0, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*types.Answer, error) {
	var (
		ans         types.Answer
		scalar, rng int64
		solvedAt    string
	)
	err := row.Scan(&ans.ID, &ans.Digest, &ans.Almanac, &ans.Stages, &scalar, &rng, &ans.Workers, &solvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	ans.Scalar = fromDB(scalar)
	ans.Range = fromDB(rng)
	ans.SolvedAt, err = time.Parse(time.RFC3339Nano, solvedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing solved_at: %w", err)
	}
	return &ans, nil
}

// toDB stores a uint64 as its int64 bit pattern.
func toDB(v uint64) int64 { return int64(v) }

func fromDB(v int64) uint64 { return uint64(v) }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

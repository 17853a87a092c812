package repository

import (
	"database/sql"
	"fmt"
	"time"

	"IFCompiler/internal/models"
	customErrors "IFCompiler/internal/models/errors"

	_ "modernc.org/sqlite"
)

type OutcomeRepository struct {
	DB *sql.DB
}

// OpenDatabase opens the SQLite ledger. The default ":memory:" path keeps
// outcomes for the life of the process only.
func OpenDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func StartOutcomeRepository(db *sql.DB) (*OutcomeRepository, error) {
	createTableSQL := `CREATE TABLE IF NOT EXISTS outcomes (
		job_id TEXT PRIMARY KEY,
		reason TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		settled_at DATETIME NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create outcomes table: %w", err)
	}

	_, _ = db.Exec("PRAGMA journal_mode=WAL;")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL;")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000;")

	return &OutcomeRepository{
		DB: db,
	}, nil
}

func (r *OutcomeRepository) Record(outcome models.Outcome) error {
	query := `INSERT INTO outcomes (job_id, reason, exit_code, duration_ms, settled_at)
              VALUES (?, ?, ?, ?, ?)`

	_, err := r.DB.Exec(query,
		outcome.JobID,
		string(outcome.Reason),
		outcome.ExitCode,
		outcome.Duration.Milliseconds(),
		outcome.SettledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

func (r *OutcomeRepository) GetByJobID(id string) (models.Outcome, error) {
	query := `SELECT job_id, reason, exit_code, duration_ms, settled_at FROM outcomes WHERE job_id = ?`
	row := r.DB.QueryRow(query, id)

	var res models.Outcome
	var reason string
	var durationMS int64
	var settledAt time.Time

	err := row.Scan(&res.JobID, &reason, &res.ExitCode, &durationMS, &settledAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Outcome{}, customErrors.ErrNotFound
		}
		return models.Outcome{}, err
	}

	res.Reason = models.TerminationReason(reason)
	res.Duration = time.Duration(durationMS) * time.Millisecond
	res.SettledAt = settledAt
	return res, nil
}

func (r *OutcomeRepository) Stats() (models.Stats, error) {
	rows, err := r.DB.Query(`SELECT reason, COUNT(*) FROM outcomes GROUP BY reason`)
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := models.Stats{ByReason: make(map[models.TerminationReason]int)}
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return models.Stats{}, err
		}
		stats.ByReason[models.TerminationReason(reason)] = count
		stats.Total += count
	}

	return stats, rows.Err()
}

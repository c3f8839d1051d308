package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// SQLiteStore implements Store on a single-writer SQLite file, suited to a
// single-process API+worker deployment.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) a SQLite-backed job store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("kvstore: ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("kvstore: init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		document TEXT NOT NULL,
		update_token INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveJob(ctx context.Context, job *models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("kvstore: marshal job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, state, document, update_token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		job.JobID, string(job.State), doc, job.UpdateToken, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("kvstore: save job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM jobs WHERE job_id = ?`, jobID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, cserrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: get job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(doc), &job); err != nil {
		return nil, fmt.Errorf("kvstore: unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *models.Job, expectedToken int64) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("kvstore: marshal job: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, document = ?, update_token = ?, updated_at = ?
		 WHERE job_id = ? AND update_token = ?`,
		string(job.State), doc, job.UpdateToken, job.UpdatedAt, job.JobID, expectedToken)
	if err != nil {
		return fmt.Errorf("kvstore: update job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("kvstore: update job rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := s.GetJob(ctx, job.JobID); getErr != nil {
			return getErr
		}
		return cserrors.Internal("stale job write", nil).WithContext("job_id", job.JobID)
	}
	return nil
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("kvstore: delete job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return cserrors.ErrJobNotFound
	}
	return nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	query := `SELECT document FROM jobs`
	args := []interface{}{}
	if filter.State != "" {
		query += ` WHERE state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kvstore: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("kvstore: scan job: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal([]byte(doc), &job); err != nil {
			return nil, fmt.Errorf("kvstore: unmarshal job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// ClaimStaleJobs reassigns queued/running jobs whose claim has expired (or
// which were never claimed) to claimant, bumping Attempts, up to limit
// rows. Jobs already at maxAttempts are skipped and left as they are.
func (s *SQLiteStore) ClaimStaleJobs(ctx context.Context, claimant string, maxAttempts int, limit int) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM jobs WHERE state IN ('queued', 'running') ORDER BY created_at ASC LIMIT ?`,
		limit*4)
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan stale jobs: %w", err)
	}

	now := time.Now()
	var candidates []*models.Job
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("kvstore: scan job: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal([]byte(doc), &job); err != nil {
			rows.Close()
			return nil, fmt.Errorf("kvstore: unmarshal job: %w", err)
		}
		if job.ClaimExpiresAt != nil && job.ClaimExpiresAt.After(now) {
			continue
		}
		if job.Attempts >= maxAttempts {
			continue
		}
		candidates = append(candidates, &job)
		if len(candidates) >= limit {
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	claimed := make([]*models.Job, 0, len(candidates))
	for _, job := range candidates {
		expectedToken := job.UpdateToken
		job.Attempts++
		job.ClaimedBy = claimant
		expires := now.Add(10 * time.Minute)
		job.ClaimExpiresAt = &expires
		job.Touch()

		if err := s.UpdateJob(ctx, job, expectedToken); err != nil {
			continue // lost the race to another claimant; skip it this round
		}
		claimed = append(claimed, job)
	}
	return claimed, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQLiteStore) Close() error                   { return s.db.Close() }

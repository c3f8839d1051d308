package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	cserrors "github.com/casestrainer/casestrainer/internal/errors"
	"github.com/casestrainer/casestrainer/pkg/models"
)

// PostgresStore implements Store on PostgreSQL, suited to a horizontally
// scaled API+worker deployment sharing one job table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens (and migrates) a PostgreSQL-backed job store.
func NewPostgresStore(connStr string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("kvstore: ping postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if connMaxLifetime > 0 {
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	store := &PostgresStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("kvstore: init schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		document JSONB NOT NULL,
		update_token BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
	CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *PostgresStore) SaveJob(ctx context.Context, job *models.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("kvstore: marshal job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (job_id, state, document, update_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		job.JobID, string(job.State), doc, job.UpdateToken, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("kvstore: save job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM jobs WHERE job_id = $1`, jobID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, cserrors.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: get job: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, fmt.Errorf("kvstore: unmarshal job: %w", err)
	}
	return &job, nil
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *models.Job, expectedToken int64) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("kvstore: marshal job: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = $1, document = $2, update_token = $3, updated_at = $4
		 WHERE job_id = $5 AND update_token = $6`,
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

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("kvstore: delete job: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return cserrors.ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.Job, error) {
	query := `SELECT document FROM jobs`
	args := []interface{}{}
	argN := 1
	if filter.State != "" {
		query += fmt.Sprintf(` WHERE state = $%d`, argN)
		args = append(args, string(filter.State))
		argN++
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argN, argN+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("kvstore: list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("kvstore: scan job: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal(doc, &job); err != nil {
			return nil, fmt.Errorf("kvstore: unmarshal job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// ClaimStaleJobs uses a SELECT ... FOR UPDATE SKIP LOCKED window so
// concurrent workers never claim the same row twice.
func (s *PostgresStore) ClaimStaleJobs(ctx context.Context, claimant string, maxAttempts int, limit int) ([]*models.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("kvstore: begin claim tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	rows, err := tx.QueryContext(ctx,
		`SELECT document FROM jobs
		 WHERE state IN ('queued', 'running')
		 ORDER BY created_at ASC
		 FOR UPDATE SKIP LOCKED
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan stale jobs: %w", err)
	}

	var candidates []*models.Job
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("kvstore: scan job: %w", err)
		}
		var job models.Job
		if err := json.Unmarshal(doc, &job); err != nil {
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
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	claimed := make([]*models.Job, 0, len(candidates))
	for _, job := range candidates {
		job.Attempts++
		job.ClaimedBy = claimant
		expires := now.Add(10 * time.Minute)
		job.ClaimExpiresAt = &expires
		job.Touch()

		doc, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET state = $1, document = $2, update_token = $3, updated_at = $4 WHERE job_id = $5`,
			string(job.State), doc, job.UpdateToken, job.UpdatedAt, job.JobID); err != nil {
			continue
		}
		claimed = append(claimed, job)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("kvstore: commit claim tx: %w", err)
	}
	return claimed, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *PostgresStore) Close() error                   { return s.db.Close() }

package task

import (
	"context"
	"database/sql"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/studio"
)

const jobColumns = `id, request, metadata, status, attempts, max_retries, last_error, error_code, result, created_at, updated_at`

// MySQLStore keeps jobs in the song_jobs table. The schema comes from the
// embedded migrations applied by storage/mysql.Migrate.
type MySQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewMySQLStore wraps an open database handle.
func NewMySQLStore(db *sql.DB) (*MySQLStore, error) {
	if db == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "mysql handle is nil")
	}
	return &MySQLStore{db: db, now: time.Now}, nil
}

// Create inserts a pending job.
func (s *MySQLStore) Create(ctx context.Context, job *Job) error {
	if job == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "job cannot be nil")
	}
	if strings.TrimSpace(job.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "job id cannot be empty")
	}
	request, err := json.Marshal(job.Request)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "encode job request")
	}
	metadata, err := marshalNullable(job.Metadata, len(job.Metadata) == 0)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "encode job metadata")
	}

	now := s.now().Unix()
	job.CreatedAt = now
	job.UpdatedAt = now

	const stmt = `INSERT INTO song_jobs
        (id, request, preset_id, metadata, status, attempts, max_retries, last_error, error_code, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, '', '', ?, ?)`
	_, err = s.db.ExecContext(ctx, stmt,
		job.ID, string(request), job.Request.PresetID, metadata,
		string(job.Status), job.Attempts, job.MaxRetries, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysqldriver.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrJobConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "insert job")
	}
	return nil
}

// Get loads one job.
func (s *MySQLStore) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM song_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "load job")
	}
	return job, nil
}

// Claim implements Store with a conditional update.
func (s *MySQLStore) Claim(ctx context.Context, id string) (*Job, error) {
	const stmt = `UPDATE song_jobs SET status = ?, attempts = attempts + 1, updated_at = ?, last_error = '', error_code = ''
        WHERE id = ? AND status IN (?, ?) AND attempts < max_retries`
	res, err := s.db.ExecContext(ctx, stmt, string(StatusRunning), s.now().Unix(), id, string(StatusPending), string(StatusFailed))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "claim job")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "claim job rows affected")
	}
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected > 0 {
		return job, nil
	}
	switch {
	case job.Status == StatusSucceeded:
		return job, ErrJobCompleted
	case job.Status != StatusRunning && job.Attempts >= job.MaxRetries:
		return job, ErrJobExhausted
	default:
		return job, ErrJobConflict
	}
}

// MarkSucceeded stores the song as JSON.
func (s *MySQLStore) MarkSucceeded(ctx context.Context, id string, song *studio.Song) error {
	result, err := marshalNullable(song, song == nil)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "encode job result")
	}
	title := ""
	if song != nil {
		title = song.Title
	}
	const stmt = `UPDATE song_jobs SET status = ?, result = ?, title = ?, last_error = '', error_code = '', updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt, string(StatusSucceeded), result, title, s.now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "mark job succeeded")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

// MarkFailed records the failure.
func (s *MySQLStore) MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string) error {
	const stmt = `UPDATE song_jobs SET status = ?, last_error = ?, error_code = ?, updated_at = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, stmt, string(StatusFailed), lastError, string(code), s.now().Unix(), id)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "mark job failed")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrJobNotFound
	}
	return nil
}

// List returns matching jobs.
func (s *MySQLStore) List(ctx context.Context, opts ListOptions) ([]*Job, error) {
	opts.applyDefaults()

	query := `SELECT ` + jobColumns + ` FROM song_jobs`
	clause, args := opts.where()
	if clause != "" {
		query += " WHERE " + clause
	}
	query += opts.orderBy()
	query += " LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "list jobs")
	}
	defer rows.Close()

	jobs := make([]*Job, 0, opts.Limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate jobs")
	}
	return jobs, nil
}

// Stats aggregates matching jobs.
func (s *MySQLStore) Stats(ctx context.Context, opts ListOptions) (Stats, error) {
	opts.applyDefaults()

	query := `SELECT
        COUNT(*),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
        COALESCE(MIN(updated_at), 0),
        COALESCE(MAX(updated_at), 0)
        FROM song_jobs`
	clause, filterArgs := opts.where()
	if clause != "" {
		query += " WHERE " + clause
	}
	args := append([]any{string(StatusPending), string(StatusRunning), string(StatusSucceeded), string(StatusFailed)}, filterArgs...)

	var stats Stats
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.Total, &stats.Pending, &stats.Running, &stats.Succeeded, &stats.Failed,
		&stats.OldestUpdatedAt, &stats.NewestUpdatedAt,
	); err != nil {
		return Stats{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "job stats")
	}
	return stats, nil
}

// Close closes the database handle.
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job      Job
		status   string
		request  string
		metadata sql.NullString
		result   sql.NullString
	)
	if err := row.Scan(&job.ID, &request, &metadata, &status, &job.Attempts, &job.MaxRetries,
		&job.LastError, &job.ErrorCode, &result, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	if err := json.Unmarshal([]byte(request), &job.Request); err != nil {
		return nil, fmt.Errorf("decode request of job %s: %w", job.ID, err)
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata of job %s: %w", job.ID, err)
		}
	}
	if result.Valid && result.String != "" {
		job.Result = &studio.Song{}
		if err := json.Unmarshal([]byte(result.String), job.Result); err != nil {
			return nil, fmt.Errorf("decode result of job %s: %w", job.ID, err)
		}
	}
	return &job, nil
}

func marshalNullable(v any, empty bool) (sql.NullString, error) {
	if empty {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

var _ Store = (*MySQLStore)(nil)

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration

	"object-detect/internal/domain/entity"
	"object-detect/internal/domain/port"
)

const createJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
    id           TEXT PRIMARY KEY,
    filename     TEXT NOT NULL,
    content_type TEXT NOT NULL,
    kind         TEXT NOT NULL DEFAULT '',
    state        TEXT NOT NULL,
    upload_path  TEXT NOT NULL DEFAULT '',
    result_file  TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

const jobColumns = `id, filename, content_type, kind, state, upload_path, result_file, error, created_at, updated_at`

// SQLiteJobRepository хранилище задач в SQLite
type SQLiteJobRepository struct {
	db *sql.DB
}

// NewSQLiteJobRepository открывает базу и создаёт таблицы при необходимости.
func NewSQLiteJobRepository(dataSourceName string) (*SQLiteJobRepository, error) {
	dbPath := dataSourceName
	if idx := strings.Index(dataSourceName, "?"); idx != -1 {
		dbPath = dataSourceName[:idx]
	}
	if err := EnsureDir(filepath.Dir(dbPath)); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	if !strings.Contains(dataSourceName, "_busy_timeout") {
		if strings.Contains(dataSourceName, "?") {
			dataSourceName += "&_busy_timeout=5000"
		} else {
			dataSourceName += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(createJobsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &SQLiteJobRepository{db: db}, nil
}

// Close закрывает соединение с базой
func (r *SQLiteJobRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteJobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (r *SQLiteJobRepository) Save(ctx context.Context, job *entity.Job) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    filename = excluded.filename,
    content_type = excluded.content_type,
    kind = excluded.kind,
    state = excluded.state,
    upload_path = excluded.upload_path,
    result_file = excluded.result_file,
    error = excluded.error,
    updated_at = excluded.updated_at`,
		job.ID, job.Filename, job.ContentType, string(job.Kind), string(job.State),
		job.UploadPath, job.ResultFile, job.Error,
		job.CreatedAt.UnixNano(), job.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return nil
}

func (r *SQLiteJobRepository) UpdateState(ctx context.Context, id string, state entity.JobState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now().UTC().UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job state: %w", err)
	}
	if n == 0 {
		return entity.ErrJobNotFound
	}
	return nil
}

func (r *SQLiteJobRepository) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*entity.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*entity.Job, error) {
	var (
		job                  entity.Job
		kind, state          string
		createdAt, updatedAt int64
	)
	err := s.Scan(&job.ID, &job.Filename, &job.ContentType, &kind, &state,
		&job.UploadPath, &job.ResultFile, &job.Error, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	job.Kind = entity.MediaKind(kind)
	job.State = entity.JobState(state)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	job.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &job, nil
}

var _ port.JobRepository = (*SQLiteJobRepository)(nil)

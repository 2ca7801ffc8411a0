package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Find returns all jobs, newest first.
func (r *PGRepo) Find(ctx context.Context) ([]Job, error) {
	const query = `
SELECT id, title, department, location, type, description, skills, applicants, high_matches, created_at
FROM jobs
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// FindOne returns a job by its ID.
func (r *PGRepo) FindOne(ctx context.Context, jobID string) (Job, error) {
	const query = `
SELECT id, title, department, location, type, description, skills, applicants, high_matches, created_at
FROM jobs
WHERE id = $1
LIMIT 1`
	row := r.DB.QueryRowContext(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// InsertOne inserts a new job.
func (r *PGRepo) InsertOne(ctx context.Context, job Job) error {
	const query = `
INSERT INTO jobs (
    id,
    title,
    department,
    location,
    type,
    description,
    skills,
    applicants,
    high_matches,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	skills, err := marshalSkills(job.Skills)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		query,
		job.ID,
		job.Title,
		job.Department,
		job.Location,
		job.Type,
		job.Description,
		skills,
		job.Applicants,
		job.HighMatches,
		job.CreatedAt,
	)
	return err
}

// UpdateOne applies the non-nil fields of the update; unset fields keep
// their stored values.
func (r *PGRepo) UpdateOne(ctx context.Context, jobID string, update Update) error {
	if update.IsEmpty() {
		return nil
	}
	const query = `
UPDATE jobs SET
  title = COALESCE($2, title),
  department = COALESCE($3, department),
  location = COALESCE($4, location),
  type = COALESCE($5, type),
  description = COALESCE($6, description),
  skills = COALESCE($7, skills),
  applicants = COALESCE($8, applicants),
  high_matches = COALESCE($9, high_matches)
WHERE id = $1`

	var skills sql.NullString
	if update.Skills != nil {
		encoded, err := marshalSkills(*update.Skills)
		if err != nil {
			return err
		}
		skills = sql.NullString{String: encoded, Valid: true}
	}
	res, err := r.DB.ExecContext(
		ctx,
		query,
		jobID,
		nullableString(update.Title),
		nullableString(update.Department),
		nullableString(update.Location),
		nullableString(update.Type),
		nullableString(update.Description),
		skills,
		nullableInt(update.Applicants),
		nullableInt(update.HighMatches),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var skillsRaw []byte
	if err := row.Scan(
		&job.ID,
		&job.Title,
		&job.Department,
		&job.Location,
		&job.Type,
		&job.Description,
		&skillsRaw,
		&job.Applicants,
		&job.HighMatches,
		&job.CreatedAt,
	); err != nil {
		return Job{}, err
	}
	job.Skills = []string{}
	if len(skillsRaw) > 0 {
		if err := json.Unmarshal(skillsRaw, &job.Skills); err != nil {
			return Job{}, err
		}
	}
	return job, nil
}

func marshalSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	encoded, err := json.Marshal(skills)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func nullableString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullableInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

var _ Repo = (*PGRepo)(nil)

package candidates

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// InsertOne inserts a new candidate row. DocumentData may be nil when the
// source file was too large to inline.
func (r *PGRepo) InsertOne(ctx context.Context, candidate Candidate) error {
	const query = `
INSERT INTO candidates (
    id,
    job_id,
    name,
    role_title,
    match_score,
    scores,
    deep_analysis,
    file_name,
    source_key,
    document_data,
    applied_date,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	var deepAnalysis sql.NullString
	if len(candidate.DeepAnalysis) > 0 {
		deepAnalysis = sql.NullString{String: string(candidate.DeepAnalysis), Valid: true}
	}
	var documentData any
	if len(candidate.DocumentData) > 0 {
		documentData = candidate.DocumentData
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		candidate.ID,
		candidate.JobID,
		candidate.Name,
		candidate.CurrentRole,
		candidate.MatchScore,
		string(candidate.Scores),
		deepAnalysis,
		candidate.FileName,
		candidate.SourceKey,
		documentData,
		candidate.AppliedDate,
		candidate.CreatedAt,
	)
	return err
}

// ExistsBySource reports whether the source document already has a record
// for the job. Queue redeliveries rely on this to stay exactly-once.
func (r *PGRepo) ExistsBySource(ctx context.Context, jobID, sourceKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM candidates WHERE job_id = $1 AND source_key = $2)`
	var exists bool
	if err := r.DB.QueryRowContext(ctx, query, jobID, sourceKey).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// FindByJob returns candidates for a job, highest score first. Document
// payloads are not loaded on the list path.
func (r *PGRepo) FindByJob(ctx context.Context, jobID string) ([]Candidate, error) {
	const query = `
SELECT id, job_id, name, role_title, match_score, scores, deep_analysis, file_name, applied_date, created_at
FROM candidates
WHERE job_id = $1
ORDER BY match_score DESC, created_at ASC`
	rows, err := r.DB.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var candidate Candidate
		var scores []byte
		var deepAnalysis sql.NullString
		if err := rows.Scan(
			&candidate.ID,
			&candidate.JobID,
			&candidate.Name,
			&candidate.CurrentRole,
			&candidate.MatchScore,
			&scores,
			&deepAnalysis,
			&candidate.FileName,
			&candidate.AppliedDate,
			&candidate.CreatedAt,
		); err != nil {
			return nil, err
		}
		candidate.Scores = scores
		if deepAnalysis.Valid {
			candidate.DeepAnalysis = []byte(deepAnalysis.String)
		}
		out = append(out, candidate)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

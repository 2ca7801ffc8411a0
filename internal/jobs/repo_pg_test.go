package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoInsertOneEncodesSkills(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	job := Job{
		ID:          "job-1",
		Title:       "Backend Engineer",
		Department:  "Engineering",
		Location:    "Remote",
		Type:        "Full-time",
		Description: "Build services",
		Skills:      []string{"Go", "Postgres"},
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			job.ID,
			job.Title,
			job.Department,
			job.Location,
			job.Type,
			job.Description,
			`["Go","Postgres"]`,
			job.Applicants,
			job.HighMatches,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.InsertOne(context.Background(), job); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFindOneDecodesSkills(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	created := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "title", "department", "location", "type", "description",
		"skills", "applicants", "high_matches", "created_at",
	}).AddRow("job-1", "Backend Engineer", "Engineering", "Remote", "Full-time",
		"Build services", []byte(`["Go","Postgres"]`), 4, 1, created)

	mock.ExpectQuery("SELECT (.+) FROM jobs").
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.FindOne(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if len(job.Skills) != 2 || job.Skills[0] != "Go" {
		t.Fatalf("expected decoded skills, got %v", job.Skills)
	}
	if job.Applicants != 4 || job.HighMatches != 1 {
		t.Fatalf("unexpected counters: %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateOneMissingJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	applicants := 5
	mock.ExpectExec("UPDATE jobs SET").
		WithArgs(
			"job-missing",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.UpdateOne(context.Background(), "job-missing", Update{Applicants: &applicants})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestMemoryRepoUpdateOnePartial(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	if err := repo.InsertOne(ctx, Job{ID: "job-1", Title: "Backend Engineer", Applicants: 1, HighMatches: 0}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	applicants := 2
	highMatches := 1
	if err := repo.UpdateOne(ctx, "job-1", Update{Applicants: &applicants, HighMatches: &highMatches}); err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}

	job, err := repo.FindOne(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	if job.Title != "Backend Engineer" {
		t.Fatalf("title should be unchanged, got %q", job.Title)
	}
	if job.Applicants != 2 || job.HighMatches != 1 {
		t.Fatalf("counters not applied: %+v", job)
	}

	if err := repo.UpdateOne(ctx, "job-missing", Update{Applicants: &applicants}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package candidates

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoInsertOneOmitsEmptyDocument(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	candidate := Candidate{
		ID:          "cand-1",
		JobID:       "job-1",
		Name:        "Jordan Smith",
		CurrentRole: "Staff Engineer",
		MatchScore:  87,
		Scores:      []byte(`{"jobDescriptionMatch":{"score":87,"justification":"strong"}}`),
		FileName:    "jordan.pdf",
		AppliedDate: time.Now().UTC(),
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO candidates").
		WithArgs(
			candidate.ID,
			candidate.JobID,
			candidate.Name,
			candidate.CurrentRole,
			candidate.MatchScore,
			string(candidate.Scores),
			nil, // deep_analysis
			candidate.FileName,
			candidate.SourceKey,
			nil, // document_data
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.InsertOne(context.Background(), candidate); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestMemoryRepoFindByJobOrdersByScore(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for _, c := range []Candidate{
		{ID: "cand-1", JobID: "job-1", MatchScore: 55},
		{ID: "cand-2", JobID: "job-1", MatchScore: 91},
		{ID: "cand-3", JobID: "job-2", MatchScore: 70},
	} {
		if err := repo.InsertOne(ctx, c); err != nil {
			t.Fatalf("InsertOne: %v", err)
		}
	}

	found, err := repo.FindByJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("FindByJob: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(found))
	}
	if found[0].ID != "cand-2" || found[1].ID != "cand-1" {
		t.Fatalf("unexpected ordering: %s, %s", found[0].ID, found[1].ID)
	}
}

func TestPGRepoExistsBySource(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("job-1", "uploads/abc/resume.pdf").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsBySource(context.Background(), "job-1", "uploads/abc/resume.pdf")
	if err != nil {
		t.Fatalf("ExistsBySource: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/vtonlab/vton-service/internal/model"
)

var ErrJobNotFound = errors.New("job not found")

// Repository persists job records in the vton_jobs table. Each write is a
// single statement, so it commits or rolls back as a unit.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Insert creates a new job record. resultURL may be empty; it is stored as
// NULL until the job completes.
func (r *Repository) Insert(ctx context.Context, id string, status model.Status, resultURL string) error {
	query := `
		INSERT INTO vton_jobs (id, status, vton_image_url)
		VALUES ($1, $2, NULLIF($3, ''))
	`

	if _, err := r.db.ExecContext(ctx, query, id, status, resultURL); err != nil {
		return fmt.Errorf("insert: failed to insert job %s: %w", id, err)
	}

	return nil
}

// Update transitions a job to the given status. A non-empty resultURL is
// written alongside; an empty one leaves the stored URL untouched.
func (r *Repository) Update(ctx context.Context, id string, status model.Status, resultURL string) error {
	query := `
		UPDATE vton_jobs
		SET status = $1,
		    vton_image_url = COALESCE(NULLIF($2, ''), vton_image_url),
		    updated_at = NOW()
		WHERE id = $3
	`

	res, err := r.db.ExecContext(ctx, query, status, resultURL, id)
	if err != nil {
		return fmt.Errorf("update: failed to update job %s: %w", id, err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrJobNotFound
	}

	return nil
}

// Get retrieves a job record by ID.
func (r *Repository) Get(ctx context.Context, id string) (model.Job, error) {
	query := `
		SELECT status, vton_image_url, created_at, updated_at
		FROM vton_jobs
		WHERE id = $1
	`

	var j model.Job
	var resultURL sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&j.Status, &resultURL, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Job{}, ErrJobNotFound
		}

		return model.Job{}, fmt.Errorf("get: failed to get job %s: %w", id, err)
	}

	j.ID = id
	j.VTONImageURL = resultURL.String

	return j, nil
}

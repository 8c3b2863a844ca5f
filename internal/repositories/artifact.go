package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ashgrove/chorus/internal/models"
	"github.com/ashgrove/chorus/internal/shared"
	"github.com/ashgrove/chorus/internal/transport"
)

// ArtifactRepository implements models.Repository[*models.PersistedArtifact] for the local artifact cache.
//
// The backend's listing is authoritative; this cache only backs offline listings
// and is replaced wholesale on each refresh.
type ArtifactRepository struct {
	db *sql.DB
}

// NewArtifactRepository creates a new ArtifactRepository with the given database connection
func NewArtifactRepository(db *sql.DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

// Create inserts a new artifact cache row with generated ID and sequence
func (r *ArtifactRepository) Create(artifact *models.PersistedArtifact) error {
	sequence, err := NextSequence(r.db, "artifacts")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	artifact.SetID(id)

	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO artifacts (id, sequence, backend_id, title, kind, path, duration_secs, is_current, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		artifact.BackendID(),
		artifact.Title(),
		artifact.Kind(),
		artifact.Path(),
		artifact.DurationSecs(),
		artifact.IsCurrent(),
		artifact.CreatedAt(),
		artifact.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert artifact: %w", err)
	}

	return nil
}

// Get retrieves an artifact by ID, excluding soft-deleted rows
func (r *ArtifactRepository) Get(id string) (*models.PersistedArtifact, error) {
	query := `
		SELECT id, sequence, backend_id, title, kind, path, duration_secs, is_current, created_at, updated_at
		FROM artifacts
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// GetByBackendID retrieves an artifact by the backend's identifier
func (r *ArtifactRepository) GetByBackendID(backendID string) (*models.PersistedArtifact, error) {
	query := `
		SELECT id, sequence, backend_id, title, kind, path, duration_secs, is_current, created_at, updated_at
		FROM artifacts
		WHERE backend_id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, backendID))
}

// Update modifies an existing artifact cache row
func (r *ArtifactRepository) Update(artifact *models.PersistedArtifact) error {
	if err := artifact.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	artifact.Touch()

	query := `
		UPDATE artifacts
		SET title = ?, kind = ?, path = ?, duration_secs = ?, is_current = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		artifact.Title(),
		artifact.Kind(),
		artifact.Path(),
		artifact.DurationSecs(),
		artifact.IsCurrent(),
		artifact.UpdatedAt(),
		artifact.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update artifact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("artifact not found: %s", artifact.ID())
	}

	return nil
}

// Delete soft-deletes an artifact by setting deleted_at
func (r *ArtifactRepository) Delete(id string) error {
	query := `UPDATE artifacts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("artifact not found: %s", id)
	}

	return nil
}

// List retrieves artifacts matching the given criteria (kind, is_current), ordered by sequence
func (r *ArtifactRepository) List(criteria map[string]any) ([]*models.PersistedArtifact, error) {
	query := `
		SELECT id, sequence, backend_id, title, kind, path, duration_secs, is_current, created_at, updated_at
		FROM artifacts
		WHERE deleted_at IS NULL
	`
	args := []any{}

	if kind, ok := criteria["kind"]; ok {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if current, ok := criteria["is_current"]; ok {
		query += " AND is_current = ?"
		args = append(args, current)
	}

	query += " ORDER BY sequence"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.PersistedArtifact
	for rows.Next() {
		artifact, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}

// ReplaceAll swaps the cache for a fresh backend listing in one transaction.
// current is the index of the backend's current pointer, -1 for none.
func (r *ArtifactRepository) ReplaceAll(listing *transport.ArtifactListing) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM artifacts"); err != nil {
		return fmt.Errorf("failed to clear artifact cache: %w", err)
	}

	insert := `
		INSERT INTO artifacts (id, sequence, backend_id, title, kind, path, duration_secs, is_current, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, dto := range listing.Artifacts {
		artifact := models.NewPersistedArtifact(i+1, dto, i == listing.Current)
		artifact.SetID(shared.GenerateID())
		if err := artifact.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		_, err := tx.Exec(insert,
			artifact.ID(),
			artifact.Sequence(),
			artifact.BackendID(),
			artifact.Title(),
			artifact.Kind(),
			artifact.Path(),
			artifact.DurationSecs(),
			artifact.IsCurrent(),
			artifact.CreatedAt(),
			artifact.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert artifact: %w", err)
		}
	}

	return tx.Commit()
}

// scanOne scans a single row into a [models.PersistedArtifact]
func (r *ArtifactRepository) scanOne(row *sql.Row) (*models.PersistedArtifact, error) {
	var (
		id, backendID, title, kind, path string
		sequence, durationSecs           int
		isCurrent                        bool
		createdAt, updatedAt             time.Time
	)

	err := row.Scan(&id, &sequence, &backendID, &title, &kind, &path, &durationSecs, &isCurrent, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artifact not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	return rebuildArtifact(id, sequence, backendID, title, kind, path, durationSecs, isCurrent, createdAt), nil
}

// scanRow scans a row from [sql.Rows] into a [models.PersistedArtifact]
func (r *ArtifactRepository) scanRow(rows *sql.Rows) (*models.PersistedArtifact, error) {
	var (
		id, backendID, title, kind, path string
		sequence, durationSecs           int
		isCurrent                        bool
		createdAt, updatedAt             time.Time
	)

	err := rows.Scan(&id, &sequence, &backendID, &title, &kind, &path, &durationSecs, &isCurrent, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	return rebuildArtifact(id, sequence, backendID, title, kind, path, durationSecs, isCurrent, createdAt), nil
}

func rebuildArtifact(id string, sequence int, backendID, title, kind, path string, durationSecs int, isCurrent bool, createdAt time.Time) *models.PersistedArtifact {
	dto := transport.Artifact{
		ID:           backendID,
		Title:        title,
		Kind:         kind,
		Path:         path,
		DurationSecs: durationSecs,
		CreatedAt:    createdAt,
	}
	artifact := models.NewPersistedArtifact(sequence, dto, isCurrent)
	artifact.SetID(id)
	return artifact
}

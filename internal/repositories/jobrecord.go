package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ashgrove/chorus/internal/models"
	"github.com/ashgrove/chorus/internal/shared"
)

// JobRecordRepository persists terminal job outcomes for `chorus jobs history`.
//
// History rows are append-only; Update and Delete exist to satisfy
// models.Repository but are not used by the engine.
type JobRecordRepository struct {
	db *sql.DB
}

// NewJobRecordRepository creates a new JobRecordRepository with the given database connection
func NewJobRecordRepository(db *sql.DB) *JobRecordRepository {
	return &JobRecordRepository{db: db}
}

// Create appends a job outcome with generated ID and sequence
func (r *JobRecordRepository) Create(record *models.JobRecord) error {
	sequence, err := NextSequence(r.db, "job_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)

	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO job_history (id, sequence, job_id, kind, outcome, message, submitted_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		record.JobID(),
		record.Kind(),
		record.Outcome(),
		record.Message(),
		record.SubmittedAt(),
		record.FinishedAt(),
		record.CreatedAt(),
		record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job record: %w", err)
	}

	return nil
}

// Get retrieves a job record by ID
func (r *JobRecordRepository) Get(id string) (*models.JobRecord, error) {
	query := `
		SELECT id, sequence, job_id, kind, outcome, message, submitted_at, finished_at
		FROM job_history
		WHERE id = ?
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update is unsupported; history rows are append-only
func (r *JobRecordRepository) Update(record *models.JobRecord) error {
	return fmt.Errorf("%w: job history is append-only", shared.ErrNotImplemented)
}

// Delete is unsupported; history rows are append-only
func (r *JobRecordRepository) Delete(id string) error {
	return fmt.Errorf("%w: job history is append-only", shared.ErrNotImplemented)
}

// List retrieves job records matching the given criteria (outcome, kind, job_id), newest first
func (r *JobRecordRepository) List(criteria map[string]any) ([]*models.JobRecord, error) {
	query := `
		SELECT id, sequence, job_id, kind, outcome, message, submitted_at, finished_at
		FROM job_history
		WHERE 1=1
	`
	args := []any{}

	if outcome, ok := criteria["outcome"]; ok {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}
	if kind, ok := criteria["kind"]; ok {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if jobID, ok := criteria["job_id"]; ok {
		query += " AND job_id = ?"
		args = append(args, jobID)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job records: %w", err)
	}
	defer rows.Close()

	var records []*models.JobRecord
	for rows.Next() {
		record, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// scanOne scans a single row into a [models.JobRecord]
func (r *JobRecordRepository) scanOne(row *sql.Row) (*models.JobRecord, error) {
	var (
		id, jobID, kind, outcome, message string
		sequence                          int
		submittedAt, finishedAt           time.Time
	)

	err := row.Scan(&id, &sequence, &jobID, &kind, &outcome, &message, &submittedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job record: %w", err)
	}

	record := models.NewJobRecord(sequence, jobID, kind, outcome, message, submittedAt)
	record.SetID(id)
	record.SetFinishedAt(finishedAt)
	return record, nil
}

// scanRow scans a row from [sql.Rows] into a [models.JobRecord]
func (r *JobRecordRepository) scanRow(rows *sql.Rows) (*models.JobRecord, error) {
	var (
		id, jobID, kind, outcome, message string
		sequence                          int
		submittedAt, finishedAt           time.Time
	)

	err := rows.Scan(&id, &sequence, &jobID, &kind, &outcome, &message, &submittedAt, &finishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan job record: %w", err)
	}

	record := models.NewJobRecord(sequence, jobID, kind, outcome, message, submittedAt)
	record.SetID(id)
	record.SetFinishedAt(finishedAt)
	return record, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-tools/timetable-api/internal/models"
)

// InstructorRepository manages persistence for instructors and their
// per-term attachments.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository constructs an InstructorRepository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// List returns instructors matching the filter along with total count.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	base := "FROM instructors WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		base += fmt.Sprintf(" AND LOWER(name) LIKE $%d", len(args)+1)
		args = append(args, search)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}

	return instructors, total, nil
}

// FindByID fetches an instructor by ID.
func (r *InstructorRepository) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	const query = `SELECT id, name, created_at, updated_at FROM instructors WHERE id = $1`
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, id); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// Create inserts a new instructor record.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	if instructor.ID == "" {
		instructor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if instructor.CreatedAt.IsZero() {
		instructor.CreatedAt = now
	}
	instructor.UpdatedAt = now

	const query = `INSERT INTO instructors (id, name, created_at, updated_at)
		VALUES (:id, :name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// AttachTerm creates an instructor-term attachment carrying load limits.
func (r *InstructorRepository) AttachTerm(ctx context.Context, attachment *models.InstructorTerm) error {
	if attachment.ID == "" {
		attachment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = now
	}
	attachment.UpdatedAt = now

	const query = `INSERT INTO instructor_terms (id, instructor_id, term_id, max_daily_minutes, max_weekly_minutes, available_days, created_at, updated_at)
		VALUES (:id, :instructor_id, :term_id, :max_daily_minutes, :max_weekly_minutes, :available_days, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attachment); err != nil {
		return fmt.Errorf("attach instructor term: %w", err)
	}
	return nil
}

// FindAttachment fetches an instructor-term attachment by ID.
func (r *InstructorRepository) FindAttachment(ctx context.Context, id string) (*models.InstructorTerm, error) {
	const query = `SELECT id, instructor_id, term_id, max_daily_minutes, max_weekly_minutes, available_days, created_at, updated_at FROM instructor_terms WHERE id = $1`
	var attachment models.InstructorTerm
	if err := r.db.GetContext(ctx, &attachment, query, id); err != nil {
		return nil, err
	}
	return &attachment, nil
}

// ExistsAttachment checks whether the instructor is already attached to
// the term.
func (r *InstructorRepository) ExistsAttachment(ctx context.Context, instructorID, termID string) (bool, error) {
	const query = `SELECT 1 FROM instructor_terms WHERE instructor_id = $1 AND term_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, instructorID, termID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor term: %w", err)
	}
	return true, nil
}

// ListByTerm returns every instructor-term attachment for a term with the
// instructor name joined on.
func (r *InstructorRepository) ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error) {
	const query = `SELECT it.id, it.instructor_id, it.term_id, it.max_daily_minutes, it.max_weekly_minutes, it.available_days, it.created_at, it.updated_at, i.name AS instructor_name
		FROM instructor_terms it
		JOIN instructors i ON i.id = it.instructor_id
		WHERE it.term_id = $1
		ORDER BY i.name, it.id`
	var attachments []models.InstructorTermDetail
	if err := r.db.SelectContext(ctx, &attachments, query, termID); err != nil {
		return nil, fmt.Errorf("list instructor terms: %w", err)
	}
	return attachments, nil
}

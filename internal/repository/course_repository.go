package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campus-tools/timetable-api/internal/models"
)

// CourseRepository manages persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching the filter along with total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c JOIN instructor_terms it ON it.id = c.instructor_term_id WHERE 1=1`
	var args []interface{}

	if filter.TermID != "" {
		base += fmt.Sprintf(" AND it.term_id = $%d", len(args)+1)
		args = append(args, filter.TermID)
	}
	if filter.Level != "" {
		base += fmt.Sprintf(" AND c.level = $%d", len(args)+1)
		args = append(args, filter.Level)
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

	query := fmt.Sprintf("SELECT c.id, c.name, c.instructor_term_id, c.session_count, c.duration, c.capacity, c.level, c.for_term, c.created_at, c.updated_at, it.instructor_id %s ORDER BY c.created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// ListByTerm returns every course whose instructor is attached to the
// term, ordered by id for deterministic engine snapshots.
func (r *CourseRepository) ListByTerm(ctx context.Context, termID string) ([]models.CourseDetail, error) {
	const query = `SELECT c.id, c.name, c.instructor_term_id, c.session_count, c.duration, c.capacity, c.level, c.for_term, c.created_at, c.updated_at, it.instructor_id
		FROM courses c
		JOIN instructor_terms it ON it.id = c.instructor_term_id
		WHERE it.term_id = $1
		ORDER BY c.id`
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, termID); err != nil {
		return nil, fmt.Errorf("list courses by term: %w", err)
	}
	return courses, nil
}

// FindByID fetches a course by ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, instructor_term_id, session_count, duration, capacity, level, for_term, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, name, instructor_term_id, session_count, duration, capacity, level, for_term, created_at, updated_at)
		VALUES (:id, :name, :instructor_term_id, :session_count, :duration, :capacity, :level, :for_term, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Delete removes a course.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM courses WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete course rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

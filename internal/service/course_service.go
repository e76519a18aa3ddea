package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-tools/timetable-api/internal/models"
	appErrors "github.com/campus-tools/timetable-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	ListByTerm(ctx context.Context, termID string) ([]models.CourseDetail, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type attachmentFinder interface {
	FindAttachment(ctx context.Context, id string) (*models.InstructorTerm, error)
}

// CreateCourseRequest describes payload for offering a course within a term.
type CreateCourseRequest struct {
	Name             string             `json:"name" validate:"required,min=2,max=160"`
	InstructorTermID string             `json:"instructor_term_id" validate:"required"`
	SessionCount     int                `json:"session_count" validate:"required,min=1,max=2"`
	Duration         int                `json:"duration" validate:"required,min=60,max=120"`
	Capacity         int                `json:"capacity" validate:"required,gt=0"`
	Level            models.CourseLevel `json:"level" validate:"required,oneof=Undergraduate Graduate PhD"`
	ForTerm          int                `json:"for_term" validate:"required,gt=0"`
}

// CourseService orchestrates course workflows.
type CourseService struct {
	repo        courseRepository
	attachments attachmentFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewCourseService creates a new course service instance.
func NewCourseService(repo courseRepository, attachments attachmentFinder, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, attachments: attachments, validator: validate, logger: logger}
}

// List returns paginated courses.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	pagination := &models.Pagination{
		Page:       page,
		PageSize:   size,
		TotalCount: total,
	}
	return courses, pagination, nil
}

// Get returns a course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create offers a course against an existing instructor-term attachment.
// Session durations must align to the 15-minute scheduling step.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if req.Duration%15 != 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "duration must be a multiple of 15 minutes")
	}

	if _, err := s.attachments.FindAttachment(ctx, req.InstructorTermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor term attachment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor term")
	}

	course := &models.Course{
		Name:             req.Name,
		InstructorTermID: req.InstructorTermID,
		SessionCount:     req.SessionCount,
		Duration:         req.Duration,
		Capacity:         req.Capacity,
		Level:            req.Level,
		ForTerm:          req.ForTerm,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// Delete removes a course offering.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}

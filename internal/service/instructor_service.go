package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campus-tools/timetable-api/internal/engine"
	"github.com/campus-tools/timetable-api/internal/models"
	appErrors "github.com/campus-tools/timetable-api/pkg/errors"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	AttachTerm(ctx context.Context, attachment *models.InstructorTerm) error
	ExistsAttachment(ctx context.Context, instructorID, termID string) (bool, error)
	ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error)
}

type termFinder interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

// CreateInstructorRequest describes payload for adding instructors.
type CreateInstructorRequest struct {
	Name string `json:"name" validate:"required,min=2,max=120"`
}

// AttachTermRequest attaches an instructor to a term with load limits.
// AvailableDays empty means the instructor can teach on any operating day.
type AttachTermRequest struct {
	TermID           string   `json:"term_id" validate:"required"`
	MaxDailyMinutes  int      `json:"max_daily_minutes" validate:"required,gt=0"`
	MaxWeeklyMinutes int      `json:"max_weekly_minutes" validate:"required,gt=0"`
	AvailableDays    []string `json:"available_days"`
}

// InstructorService orchestrates instructor workflows.
type InstructorService struct {
	repo      instructorRepository
	terms     termFinder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService creates a new instructor service instance.
func NewInstructorService(repo instructorRepository, terms termFinder, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, terms: terms, validator: validate, logger: logger}
}

// List returns paginated instructors.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error) {
	instructors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
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
	return instructors, pagination, nil
}

// Get returns an instructor by ID.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// Create adds a new instructor.
func (s *InstructorService) Create(ctx context.Context, req CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}

	instructor := &models.Instructor{Name: req.Name}
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}
	return instructor, nil
}

// AttachTerm binds an instructor to a term with the load limits the
// timetable engine enforces during generation.
func (s *InstructorService) AttachTerm(ctx context.Context, instructorID string, req AttachTermRequest) (*models.InstructorTerm, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attachment payload")
	}
	if req.MaxWeeklyMinutes < req.MaxDailyMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "max_weekly_minutes must not be below max_daily_minutes")
	}
	if err := validateDayNames(req.AvailableDays); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	if _, err := s.repo.FindByID(ctx, instructorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	exists, err := s.repo.ExistsAttachment(ctx, instructorID, req.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attachment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "instructor is already attached to this term")
	}

	days, err := json.Marshal(req.AvailableDays)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode available days")
	}

	attachment := &models.InstructorTerm{
		InstructorID:     instructorID,
		TermID:           req.TermID,
		MaxDailyMinutes:  req.MaxDailyMinutes,
		MaxWeeklyMinutes: req.MaxWeeklyMinutes,
		AvailableDays:    types.JSONText(days),
	}
	if err := s.repo.AttachTerm(ctx, attachment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach instructor term")
	}
	return attachment, nil
}

// ListByTerm returns the term attachments with instructor names joined on.
func (s *InstructorService) ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error) {
	attachments, err := s.repo.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor terms")
	}
	return attachments, nil
}

func validateDayNames(days []string) error {
	for _, name := range days {
		valid := false
		for _, day := range engine.OperatingDays {
			if string(day) == name {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("unknown day name %q", name)
		}
	}
	return nil
}

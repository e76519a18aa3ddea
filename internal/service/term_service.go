package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-tools/timetable-api/internal/models"
	appErrors "github.com/campus-tools/timetable-api/pkg/errors"
)

// minAcademicYear is the earliest year the institution keeps records for.
const minAcademicYear = 1395

type termRepository interface {
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error)
	FindByID(ctx context.Context, id string) (*models.Term, error)
	ExistsByYearAndType(ctx context.Context, yearStart int, termType models.TermType) (bool, error)
	Create(ctx context.Context, term *models.Term) error
}

// CreateTermRequest describes payload for creating academic terms.
type CreateTermRequest struct {
	YearStart int             `json:"year_start" validate:"required"`
	YearEnd   int             `json:"year_end" validate:"required"`
	Type      models.TermType `json:"type" validate:"required,oneof=first second summer"`
}

// TermService orchestrates term workflows.
type TermService struct {
	repo      termRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService creates a new term service instance.
func NewTermService(repo termRepository, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated terms.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.Term, *models.Pagination, error) {
	terms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
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
	return terms, pagination, nil
}

// Get returns a term by ID.
func (s *TermService) Get(ctx context.Context, id string) (*models.Term, error) {
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// Create adds a new term ensuring uniqueness and year consistency. Summer
// terms start and end in the same year; first and second terms span
// exactly one year boundary.
func (s *TermService) Create(ctx context.Context, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if req.YearStart < minAcademicYear || req.YearEnd < minAcademicYear {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic years are out of range")
	}
	switch req.Type {
	case models.TermTypeSummer:
		if req.YearEnd != req.YearStart {
			return nil, appErrors.Clone(appErrors.ErrValidation, "summer terms must start and end in the same year")
		}
	default:
		if req.YearEnd != req.YearStart+1 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "first and second terms must span exactly one year")
		}
	}

	exists, err := s.repo.ExistsByYearAndType(ctx, req.YearStart, req.Type)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check term uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "term already exists for year and type")
	}

	term := &models.Term{
		YearStart: req.YearStart,
		YearEnd:   req.YearEnd,
		Type:      req.Type,
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

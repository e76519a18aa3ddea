package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-tools/timetable-api/internal/models"
	appErrors "github.com/campus-tools/timetable-api/pkg/errors"
)

type termRepoStub struct {
	terms  map[string]*models.Term
	exists bool
}

func (s *termRepoStub) List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error) {
	var out []models.Term
	for _, term := range s.terms {
		out = append(out, *term)
	}
	return out, len(out), nil
}

func (s *termRepoStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	term, ok := s.terms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return term, nil
}

func (s *termRepoStub) ExistsByYearAndType(ctx context.Context, yearStart int, termType models.TermType) (bool, error) {
	return s.exists, nil
}

func (s *termRepoStub) Create(ctx context.Context, term *models.Term) error {
	term.ID = "term-new"
	if s.terms == nil {
		s.terms = map[string]*models.Term{}
	}
	s.terms[term.ID] = term
	return nil
}

func TestTermServiceCreateFirstTerm(t *testing.T) {
	service := NewTermService(&termRepoStub{}, nil, nil)

	term, err := service.Create(context.Background(), CreateTermRequest{
		YearStart: 1403,
		YearEnd:   1404,
		Type:      models.TermTypeFirst,
	})
	require.NoError(t, err)
	assert.Equal(t, "term-new", term.ID)
}

func TestTermServiceCreateSummerSameYear(t *testing.T) {
	service := NewTermService(&termRepoStub{}, nil, nil)

	_, err := service.Create(context.Background(), CreateTermRequest{
		YearStart: 1403,
		YearEnd:   1404,
		Type:      models.TermTypeSummer,
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)

	_, err = service.Create(context.Background(), CreateTermRequest{
		YearStart: 1403,
		YearEnd:   1403,
		Type:      models.TermTypeSummer,
	})
	require.NoError(t, err)
}

func TestTermServiceCreateRejectsWrongSpan(t *testing.T) {
	service := NewTermService(&termRepoStub{}, nil, nil)

	_, err := service.Create(context.Background(), CreateTermRequest{
		YearStart: 1403,
		YearEnd:   1405,
		Type:      models.TermTypeSecond,
	})
	require.Error(t, err)
}

func TestTermServiceCreateRejectsAncientYears(t *testing.T) {
	service := NewTermService(&termRepoStub{}, nil, nil)

	_, err := service.Create(context.Background(), CreateTermRequest{
		YearStart: 1200,
		YearEnd:   1201,
		Type:      models.TermTypeFirst,
	})
	require.Error(t, err)
}

func TestTermServiceCreateDuplicate(t *testing.T) {
	service := NewTermService(&termRepoStub{exists: true}, nil, nil)

	_, err := service.Create(context.Background(), CreateTermRequest{
		YearStart: 1403,
		YearEnd:   1404,
		Type:      models.TermTypeFirst,
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestTermServiceGetNotFound(t *testing.T) {
	service := NewTermService(&termRepoStub{}, nil, nil)

	_, err := service.Get(context.Background(), "missing")
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

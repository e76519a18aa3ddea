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

type instructorRepoStub struct {
	instructors map[string]*models.Instructor
	attachments []models.InstructorTerm
	attached    bool
}

func (s *instructorRepoStub) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	var out []models.Instructor
	for _, instructor := range s.instructors {
		out = append(out, *instructor)
	}
	return out, len(out), nil
}

func (s *instructorRepoStub) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, ok := s.instructors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return instructor, nil
}

func (s *instructorRepoStub) Create(ctx context.Context, instructor *models.Instructor) error {
	instructor.ID = "ins-new"
	if s.instructors == nil {
		s.instructors = map[string]*models.Instructor{}
	}
	s.instructors[instructor.ID] = instructor
	return nil
}

func (s *instructorRepoStub) AttachTerm(ctx context.Context, attachment *models.InstructorTerm) error {
	attachment.ID = "it-new"
	s.attachments = append(s.attachments, *attachment)
	return nil
}

func (s *instructorRepoStub) ExistsAttachment(ctx context.Context, instructorID, termID string) (bool, error) {
	return s.attached, nil
}

func (s *instructorRepoStub) ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error) {
	var out []models.InstructorTermDetail
	for _, attachment := range s.attachments {
		out = append(out, models.InstructorTermDetail{InstructorTerm: attachment})
	}
	return out, nil
}

func newInstructorFixture(repo *instructorRepoStub, missingTerm bool) *InstructorService {
	return NewInstructorService(repo, termReaderStub{missing: missingTerm}, nil, nil)
}

func TestInstructorServiceAttachTerm(t *testing.T) {
	repo := &instructorRepoStub{instructors: map[string]*models.Instructor{
		"ins-1": {ID: "ins-1", Name: "Dr. Ahmadi"},
	}}
	service := newInstructorFixture(repo, false)

	attachment, err := service.AttachTerm(context.Background(), "ins-1", AttachTermRequest{
		TermID:           "term-1",
		MaxDailyMinutes:  240,
		MaxWeeklyMinutes: 720,
		AvailableDays:    []string{"Sat", "Mon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "it-new", attachment.ID)
	assert.JSONEq(t, `["Sat","Mon"]`, string(attachment.AvailableDays))
}

func TestInstructorServiceAttachTermRejectsWeeklyBelowDaily(t *testing.T) {
	repo := &instructorRepoStub{instructors: map[string]*models.Instructor{
		"ins-1": {ID: "ins-1", Name: "Dr. Ahmadi"},
	}}
	service := newInstructorFixture(repo, false)

	_, err := service.AttachTerm(context.Background(), "ins-1", AttachTermRequest{
		TermID:           "term-1",
		MaxDailyMinutes:  300,
		MaxWeeklyMinutes: 200,
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestInstructorServiceAttachTermRejectsUnknownDay(t *testing.T) {
	repo := &instructorRepoStub{instructors: map[string]*models.Instructor{
		"ins-1": {ID: "ins-1", Name: "Dr. Ahmadi"},
	}}
	service := newInstructorFixture(repo, false)

	_, err := service.AttachTerm(context.Background(), "ins-1", AttachTermRequest{
		TermID:           "term-1",
		MaxDailyMinutes:  240,
		MaxWeeklyMinutes: 720,
		AvailableDays:    []string{"Fri"},
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestInstructorServiceAttachTermDuplicate(t *testing.T) {
	repo := &instructorRepoStub{
		instructors: map[string]*models.Instructor{"ins-1": {ID: "ins-1"}},
		attached:    true,
	}
	service := newInstructorFixture(repo, false)

	_, err := service.AttachTerm(context.Background(), "ins-1", AttachTermRequest{
		TermID:           "term-1",
		MaxDailyMinutes:  240,
		MaxWeeklyMinutes: 720,
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, typed.Code)
}

func TestInstructorServiceAttachTermUnknownInstructor(t *testing.T) {
	service := newInstructorFixture(&instructorRepoStub{}, false)

	_, err := service.AttachTerm(context.Background(), "missing", AttachTermRequest{
		TermID:           "term-1",
		MaxDailyMinutes:  240,
		MaxWeeklyMinutes: 720,
	})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

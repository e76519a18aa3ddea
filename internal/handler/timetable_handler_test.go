package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-tools/timetable-api/internal/dto"
	"github.com/campus-tools/timetable-api/internal/models"
	"github.com/campus-tools/timetable-api/internal/service"
)

type roomsStub struct{}

func (roomsStub) ListAll(ctx context.Context) ([]models.Room, error) {
	return []models.Room{{ID: "room-1", Capacity: 50}}, nil
}

type instructorsStub struct{}

func (instructorsStub) ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error) {
	return []models.InstructorTermDetail{{
		InstructorTerm: models.InstructorTerm{
			InstructorID:     "ins-1",
			TermID:           termID,
			MaxDailyMinutes:  300,
			MaxWeeklyMinutes: 900,
			AvailableDays:    types.JSONText(`[]`),
		},
		InstructorName: "Dr. Ahmadi",
	}}, nil
}

type coursesStub struct{}

func (coursesStub) ListByTerm(ctx context.Context, termID string) ([]models.CourseDetail, error) {
	return []models.CourseDetail{{
		Course: models.Course{
			ID:           "course-1",
			Name:         "Algorithms",
			SessionCount: 1,
			Duration:     90,
			Capacity:     40,
			Level:        models.CourseLevelUndergraduate,
			ForTerm:      3,
		},
		InstructorID: "ins-1",
	}}, nil
}

type termsStub struct{}

func (termsStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if id != "term-1" {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: id, YearStart: 1403, YearEnd: 1404, Type: models.TermTypeFirst}, nil
}

type timetablesStub struct{}

func (timetablesStub) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	timetable.ID = "tt-1"
	return nil
}

func (timetablesStub) InsertSessions(ctx context.Context, exec sqlx.ExtContext, sessions []models.TimetableSession) error {
	return nil
}

func (timetablesStub) ListByTerm(ctx context.Context, termID string) ([]models.Timetable, error) {
	return []models.Timetable{{ID: "tt-1", TermID: termID, Policy: "strict", Status: models.TimetableStatusDraft}}, nil
}

func (timetablesStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	return &models.Timetable{ID: id, TermID: "term-1"}, nil
}

func (timetablesStub) ListSessions(ctx context.Context, timetableID string) ([]models.TimetableSession, error) {
	return []models.TimetableSession{{
		ID: "sess-1", TimetableID: timetableID, CourseID: "course-1",
		RoomID: "room-1", Day: "Sat", StartTime: "08:00", EndTime: "09:30",
	}}, nil
}

func (timetablesStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	return nil
}

func (timetablesStub) Delete(ctx context.Context, id string) error {
	return nil
}

func newTimetableHandlerFixture() *TimetableHandler {
	svc := service.NewTimetableService(
		roomsStub{}, instructorsStub{}, coursesStub{}, termsStub{}, timetablesStub{},
		nil, nil, nil, nil, nil,
		service.TimetableConfig{ProposalTTL: time.Minute},
	)
	return NewTimetableHandler(svc)
}

func TestTimetableHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerFixture()

	body, _ := json.Marshal(dto.GenerateTimetableRequest{TermID: "term-1", Policy: "strict"})
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data dto.GenerateTimetableResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, dto.ProposalStatusCompleted, envelope.Data.Status)
	require.Len(t, envelope.Data.Entries, 1)
	assert.Equal(t, "course-1", envelope.Data.Entries[0].CourseID)
}

func TestTimetableHandlerGenerateBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerFixture()

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"termId":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerateUnknownTerm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerFixture()

	body, _ := json.Marshal(dto.GenerateTimetableRequest{TermID: "term-404"})
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerListRequiresTerm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerFixture()

	req, _ := http.NewRequest(http.MethodGet, "/timetables", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.List(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGetSessions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerFixture()

	req, _ := http.NewRequest(http.MethodGet, "/timetables/tt-1/sessions", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.GetSessions(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "course-1")
}

func TestTimetableHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerFixture()

	req, _ := http.NewRequest(http.MethodGet, "/timetables/tt-1/export?format=csv", nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "tt-1"}}

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "course-1")
}

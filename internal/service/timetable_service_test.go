package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-tools/timetable-api/internal/dto"
	"github.com/campus-tools/timetable-api/internal/models"
	appErrors "github.com/campus-tools/timetable-api/pkg/errors"
)

type roomListerStub struct {
	rooms []models.Room
}

func (s roomListerStub) ListAll(ctx context.Context) ([]models.Room, error) {
	return s.rooms, nil
}

type instructorListerStub struct {
	attachments []models.InstructorTermDetail
}

func (s instructorListerStub) ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error) {
	return s.attachments, nil
}

type courseListerStub struct {
	courses []models.CourseDetail
}

func (s courseListerStub) ListByTerm(ctx context.Context, termID string) ([]models.CourseDetail, error) {
	return s.courses, nil
}

type termReaderStub struct {
	missing bool
}

func (s termReaderStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if s.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Term{ID: id, YearStart: 1403, YearEnd: 1404, Type: models.TermTypeFirst}, nil
}

type timetableRepoStub struct {
	created   *models.Timetable
	sessions  []models.TimetableSession
	published bool
}

func (s *timetableRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	timetable.ID = "tt-1"
	s.created = timetable
	return nil
}

func (s *timetableRepoStub) InsertSessions(ctx context.Context, exec sqlx.ExtContext, sessions []models.TimetableSession) error {
	s.sessions = sessions
	return nil
}

func (s *timetableRepoStub) ListByTerm(ctx context.Context, termID string) ([]models.Timetable, error) {
	if s.created == nil {
		return nil, nil
	}
	return []models.Timetable{*s.created}, nil
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if s.created == nil || s.created.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.created, nil
}

func (s *timetableRepoStub) ListSessions(ctx context.Context, timetableID string) ([]models.TimetableSession, error) {
	return s.sessions, nil
}

func (s *timetableRepoStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	s.published = status == models.TimetableStatusPublished
	return nil
}

func (s *timetableRepoStub) Delete(ctx context.Context, id string) error {
	if s.created == nil || s.created.ID != id {
		return sql.ErrNoRows
	}
	s.created = nil
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

type timetableFixtureConfig struct {
	tx    txProvider
	repo  *timetableRepoStub
	terms termReaderStub
}

func newTimetableServiceFixture(t *testing.T, cfg timetableFixtureConfig) *TimetableService {
	t.Helper()
	rooms := roomListerStub{rooms: []models.Room{
		{ID: "room-1", Capacity: 30},
		{ID: "room-2", Capacity: 60},
	}}
	instructors := instructorListerStub{attachments: []models.InstructorTermDetail{
		{
			InstructorTerm: models.InstructorTerm{
				InstructorID:     "ins-1",
				TermID:           "term-1",
				MaxDailyMinutes:  300,
				MaxWeeklyMinutes: 900,
				AvailableDays:    types.JSONText(`[]`),
			},
			InstructorName: "Dr. Ahmadi",
		},
	}}
	courses := courseListerStub{courses: []models.CourseDetail{
		{
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
		},
	}}
	repo := cfg.repo
	if repo == nil {
		repo = &timetableRepoStub{}
	}
	return NewTimetableService(rooms, instructors, courses, cfg.terms, repo, cfg.tx, nil, nil, nil, nil, TimetableConfig{
		ProposalTTL: time.Minute,
	})
}

func TestTimetableServiceGenerateStrict(t *testing.T) {
	service := newTimetableServiceFixture(t, timetableFixtureConfig{})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)
	assert.Equal(t, dto.ProposalStatusCompleted, resp.Status)
	assert.Equal(t, "strict", resp.Policy)
	require.Len(t, resp.Entries, 1)
	require.Len(t, resp.Entries[0].Sessions, 1)
	assert.Equal(t, "room-2", resp.Entries[0].Sessions[0].RoomID)
	assert.Empty(t, resp.Unplaced)
	require.NotNil(t, resp.Stats)
	assert.Greater(t, resp.Stats.Nodes, 0)
}

func TestTimetableServiceGenerateUnknownTerm(t *testing.T) {
	service := newTimetableServiceFixture(t, timetableFixtureConfig{terms: termReaderStub{missing: true}})

	_, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-404"})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestTimetableServiceGenerateRejectsBadPolicy(t *testing.T) {
	service := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1", Policy: "greedy"})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, typed.Code)
}

func TestTimetableServiceSavePersistsSessions(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	repo := &timetableRepoStub{}
	service := newTimetableServiceFixture(t, timetableFixtureConfig{tx: txProvider, repo: repo})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	record, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	assert.Equal(t, "tt-1", record.ID)
	assert.Equal(t, models.TimetableStatusDraft, record.Status)
	require.Len(t, repo.sessions, 1)
	assert.Equal(t, "course-1", repo.sessions[0].CourseID)
	assert.NoError(t, mock.ExpectationsWereMet())

	// saving consumes the proposal
	_, err = service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
}

func TestTimetableServiceSavePublish(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	repo := &timetableRepoStub{}
	service := newTimetableServiceFixture(t, timetableFixtureConfig{tx: txProvider, repo: repo})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	record, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Publish: true})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusPublished, record.Status)
	assert.True(t, repo.published)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableServiceDeleteRejectsPublished(t *testing.T) {
	repo := &timetableRepoStub{created: &models.Timetable{
		ID:     "tt-9",
		TermID: "term-1",
		Status: models.TimetableStatusPublished,
	}}
	service := newTimetableServiceFixture(t, timetableFixtureConfig{repo: repo})

	err := service.Delete(context.Background(), "tt-9")
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, typed.Code)
	assert.NotNil(t, repo.created)
}

func TestTimetableServiceDeleteDraft(t *testing.T) {
	repo := &timetableRepoStub{created: &models.Timetable{
		ID:     "tt-9",
		TermID: "term-1",
		Status: models.TimetableStatusDraft,
	}}
	service := newTimetableServiceFixture(t, timetableFixtureConfig{repo: repo})

	err := service.Delete(context.Background(), "tt-9")
	require.NoError(t, err)
	assert.Nil(t, repo.created)
}

func TestTimetableServiceSaveUnknownProposal(t *testing.T) {
	txProvider, _ := newTxProviderMock(t)
	service := newTimetableServiceFixture(t, timetableFixtureConfig{tx: txProvider})

	_, err := service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: "missing"})
	require.Error(t, err)
	typed := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, typed.Code)
}

func TestTimetableServiceExportCSV(t *testing.T) {
	txProvider, mock := newTxProviderMock(t)
	repo := &timetableRepoStub{}
	service := newTimetableServiceFixture(t, timetableFixtureConfig{tx: txProvider, repo: repo})

	resp, err := service.Generate(context.Background(), dto.GenerateTimetableRequest{TermID: "term-1"})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()
	_, err = service.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)

	payload, contentType, err := service.Export(context.Background(), "tt-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(payload), "course-1")
}

func TestTimetableServiceGetProposalPendingLifecycle(t *testing.T) {
	service := newTimetableServiceFixture(t, timetableFixtureConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartWorkers(ctx)
	defer service.StopWorkers()

	resp, err := service.Generate(ctx, dto.GenerateTimetableRequest{TermID: "term-1", Async: true})
	require.NoError(t, err)
	assert.Equal(t, dto.ProposalStatusPending, resp.Status)

	deadline := time.Now().Add(5 * time.Second)
	for {
		state, err := service.GetProposal(ctx, resp.ProposalID)
		require.NoError(t, err)
		if state.Status != dto.ProposalStatusPending {
			assert.Equal(t, dto.ProposalStatusCompleted, state.Status)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("async generation did not complete in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campus-tools/timetable-api/internal/dto"
	"github.com/campus-tools/timetable-api/internal/engine"
	"github.com/campus-tools/timetable-api/internal/models"
	appErrors "github.com/campus-tools/timetable-api/pkg/errors"
	"github.com/campus-tools/timetable-api/pkg/export"
	"github.com/campus-tools/timetable-api/pkg/jobs"
)

type timetableRoomLister interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type timetableInstructorLister interface {
	ListByTerm(ctx context.Context, termID string) ([]models.InstructorTermDetail, error)
}

type timetableCourseLister interface {
	ListByTerm(ctx context.Context, termID string) ([]models.CourseDetail, error)
}

type timetableTermReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
}

type timetableRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	InsertSessions(ctx context.Context, exec sqlx.ExtContext, sessions []models.TimetableSession) error
	ListByTerm(ctx context.Context, termID string) ([]models.Timetable, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListSessions(ctx context.Context, timetableID string) ([]models.TimetableSession, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	Delete(ctx context.Context, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableConfig governs scheduling service behaviour.
type TimetableConfig struct {
	ProposalTTL time.Duration
	MaxNodes    int
	Workers     int
}

// TimetableService orchestrates timetable generation, persistence and export.
type TimetableService struct {
	rooms       timetableRoomLister
	instructors timetableInstructorLister
	courses     timetableCourseLister
	terms       timetableTermReader
	timetables  timetableRepository
	tx          txProvider
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	store       *proposalStore
	queue       *jobs.Queue
	maxNodes    int
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
}

// NewTimetableService wires scheduling dependencies.
func NewTimetableService(
	rooms timetableRoomLister,
	instructors timetableInstructorLister,
	courses timetableCourseLister,
	terms timetableTermReader,
	timetables timetableRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}

	s := &TimetableService{
		rooms:       rooms,
		instructors: instructors,
		courses:     courses,
		terms:       terms,
		timetables:  timetables,
		tx:          tx,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		store:       newProposalStore(cfg.ProposalTTL),
		maxNodes:    cfg.MaxNodes,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
	}
	s.queue = jobs.NewQueue("timetable-generate", s.handleGenerateJob, jobs.QueueConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	return s
}

// StartWorkers begins consuming asynchronous generation jobs.
func (s *TimetableService) StartWorkers(ctx context.Context) {
	s.queue.Start(ctx)
}

// StopWorkers drains the job queue.
func (s *TimetableService) StopWorkers() {
	s.queue.Stop()
}

// Generate runs the scheduling engine for a term. When req.Async is set
// the run happens on a background worker and the caller polls the
// returned proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	policy := req.Policy
	if policy == "" {
		policy = string(engine.PolicyStrict)
	}

	if _, err := s.terms.FindByID(ctx, req.TermID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	proposalID := uuid.NewString()
	if req.Async {
		s.store.Save(timetableProposal{
			ProposalID:  proposalID,
			TermID:      req.TermID,
			Policy:      policy,
			Status:      dto.ProposalStatusPending,
			RequestedAt: time.Now().UTC(),
		})
		job := jobs.Job{
			ID:      proposalID,
			Type:    "generate",
			Payload: generatePayload{ProposalID: proposalID, TermID: req.TermID, Policy: policy},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.store.Delete(proposalID)
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue generation job")
		}
		return &dto.GenerateTimetableResponse{
			ProposalID: proposalID,
			TermID:     req.TermID,
			Policy:     policy,
			Status:     dto.ProposalStatusPending,
			Message:    "generation scheduled",
		}, nil
	}

	proposal := s.runGeneration(ctx, proposalID, req.TermID, policy)
	s.store.Save(proposal)
	return proposalResponse(proposal), nil
}

// GetProposal returns the state of a generation run.
func (s *TimetableService) GetProposal(ctx context.Context, proposalID string) (*dto.GenerateTimetableResponse, error) {
	proposal, ok := s.store.Get(proposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return proposalResponse(proposal), nil
}

// Save persists a completed proposal as a draft timetable, optionally
// publishing it in the same transaction.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if proposal.Status != dto.ProposalStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "proposal did not complete successfully")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	meta := map[string]any{
		"proposal_id": proposal.ProposalID,
		"generated":   proposal.RequestedAt,
		"stats":       proposal.Stats,
		"unplaced":    proposal.Result.Unplaced,
	}
	metaBytes, marshalErr := json.Marshal(meta)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
		return nil, err
	}

	record := &models.Timetable{
		TermID: proposal.TermID,
		Policy: proposal.Policy,
		Status: models.TimetableStatusDraft,
		Meta:   types.JSONText(metaBytes),
	}
	if err = s.timetables.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return nil, err
	}

	sessions := sessionModels(record.ID, proposal.Result)
	if err = s.timetables.InsertSessions(ctx, tx, sessions); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable sessions")
		return nil, err
	}

	if req.Publish {
		if err = s.timetables.UpdateStatus(ctx, tx, record.ID, models.TimetableStatusPublished); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
			return nil, err
		}
		record.Status = models.TimetableStatusPublished
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
		return nil, err
	}

	s.store.Delete(proposal.ProposalID)
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("timetables:%s:*", proposal.TermID))
	}
	return record, nil
}

// List returns persisted timetables for a term.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, error) {
	if query.TermID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}

	cacheKey := fmt.Sprintf("timetables:%s:list", query.TermID)
	var cached []models.Timetable
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return cached, nil
		}
	}

	timetables, err := s.timetables.ListByTerm(ctx, query.TermID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKey, timetables, 0)
	}
	return timetables, nil
}

// GetSessions returns the committed sessions of a stored timetable.
func (s *TimetableService) GetSessions(ctx context.Context, timetableID string) ([]models.TimetableSession, error) {
	if _, err := s.timetables.FindByID(ctx, timetableID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	sessions, err := s.timetables.ListSessions(ctx, timetableID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable sessions")
	}
	return sessions, nil
}

// Delete removes a stored timetable.
func (s *TimetableService) Delete(ctx context.Context, timetableID string) error {
	timetable, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if timetable.Status == models.TimetableStatusPublished {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "published timetables cannot be deleted")
	}
	if err := s.timetables.Delete(ctx, timetableID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, fmt.Sprintf("timetables:%s:*", timetable.TermID))
	}
	return nil
}

// Export renders a stored timetable in the requested format. Format is
// "csv" or "pdf".
func (s *TimetableService) Export(ctx context.Context, timetableID, format string) ([]byte, string, error) {
	sessions, err := s.GetSessions(ctx, timetableID)
	if err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"Course", "Room", "Day", "Start", "End"},
	}
	for _, session := range sessions {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Course": session.CourseID,
			"Room":   session.RoomID,
			"Day":    session.Day,
			"Start":  session.StartTime,
			"End":    session.EndTime,
		})
	}

	switch format {
	case "csv", "":
		payload, renderErr := s.csv.Render(dataset)
		if renderErr != nil {
			return nil, "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, renderErr := s.pdf.Render(dataset, "Timetable "+timetableID)
		if renderErr != nil {
			return nil, "", appErrors.Wrap(renderErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

type generatePayload struct {
	ProposalID string
	TermID     string
	Policy     string
}

func (s *TimetableService) handleGenerateJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(generatePayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	proposal := s.runGeneration(ctx, payload.ProposalID, payload.TermID, payload.Policy)
	s.store.Save(proposal)
	return nil
}

// runGeneration loads the term snapshot, runs the engine and folds the
// outcome into a proposal record.
func (s *TimetableService) runGeneration(ctx context.Context, proposalID, termID, policy string) timetableProposal {
	proposal := timetableProposal{
		ProposalID:  proposalID,
		TermID:      termID,
		Policy:      policy,
		RequestedAt: time.Now().UTC(),
	}

	snapshot, err := s.buildSnapshot(ctx, termID)
	if err != nil {
		s.logger.Error("snapshot build failed", zap.String("term_id", termID), zap.Error(err))
		proposal.Status = dto.ProposalStatusFailed
		proposal.Message = err.Error()
		s.observeRun(policy, "error", nil, 0)
		return proposal
	}

	start := time.Now()
	result, stats, err := engine.Schedule(snapshot, engine.Options{
		Policy:   engine.Policy(policy),
		MaxNodes: s.maxNodes,
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		proposal.Status = dto.ProposalStatusCompleted
		proposal.Result = result
		proposal.Stats = runStats(stats, elapsed)
		s.observeRun(policy, "scheduled", stats, elapsed)
	case errors.Is(err, engine.ErrInfeasible):
		proposal.Status = dto.ProposalStatusInfeasible
		proposal.Message = err.Error()
		proposal.Stats = runStats(stats, elapsed)
		s.observeRun(policy, "infeasible", stats, elapsed)
	case errors.Is(err, engine.ErrBudgetExhausted):
		proposal.Status = dto.ProposalStatusFailed
		proposal.Message = err.Error()
		proposal.Stats = runStats(stats, elapsed)
		s.observeRun(policy, "budget_exhausted", stats, elapsed)
	default:
		proposal.Status = dto.ProposalStatusFailed
		proposal.Message = err.Error()
		s.observeRun(policy, "error", stats, elapsed)
	}
	return proposal
}

func (s *TimetableService) observeRun(policy, outcome string, stats *engine.Stats, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	nodes := 0
	if stats != nil {
		nodes = stats.Nodes
	}
	s.metrics.ObserveSchedulerRun(policy, outcome, nodes, elapsed)
}

// buildSnapshot assembles the engine input for one term from the stores.
func (s *TimetableService) buildSnapshot(ctx context.Context, termID string) (engine.Snapshot, error) {
	var snapshot engine.Snapshot

	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return snapshot, fmt.Errorf("load rooms: %w", err)
	}
	for _, room := range rooms {
		snapshot.Rooms = append(snapshot.Rooms, engine.Room{ID: room.ID, Capacity: room.Capacity})
	}

	attachments, err := s.instructors.ListByTerm(ctx, termID)
	if err != nil {
		return snapshot, fmt.Errorf("load instructor terms: %w", err)
	}
	for _, attachment := range attachments {
		days, err := decodeDays(attachment.AvailableDays)
		if err != nil {
			return snapshot, fmt.Errorf("instructor %s available days: %w", attachment.InstructorID, err)
		}
		snapshot.Instructors = append(snapshot.Instructors, engine.Instructor{
			ID:               attachment.InstructorID,
			Name:             attachment.InstructorName,
			MaxDailyMinutes:  attachment.MaxDailyMinutes,
			MaxWeeklyMinutes: attachment.MaxWeeklyMinutes,
			AvailableDays:    days,
		})
	}

	courses, err := s.courses.ListByTerm(ctx, termID)
	if err != nil {
		return snapshot, fmt.Errorf("load courses: %w", err)
	}
	for _, course := range courses {
		snapshot.Courses = append(snapshot.Courses, engine.Course{
			ID:           course.ID,
			Name:         course.Name,
			InstructorID: course.InstructorID,
			SessionCount: course.SessionCount,
			Duration:     course.Duration,
			Capacity:     course.Capacity,
			Level:        engine.Level(course.Level),
			Term:         course.ForTerm,
		})
	}

	return snapshot, nil
}

func decodeDays(raw types.JSONText) ([]engine.Day, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, err
	}
	days := make([]engine.Day, 0, len(names))
	for _, name := range names {
		days = append(days, engine.Day(name))
	}
	return days, nil
}

func runStats(stats *engine.Stats, elapsed time.Duration) *dto.RunStats {
	if stats == nil {
		return nil
	}
	return &dto.RunStats{
		Nodes:      stats.Nodes,
		Backtracks: stats.Backtracks,
		DurationMs: elapsed.Milliseconds(),
	}
}

func sessionModels(timetableID string, result *engine.Result) []models.TimetableSession {
	if result == nil {
		return nil
	}
	var sessions []models.TimetableSession
	for _, entry := range result.Entries {
		for _, placement := range entry.Sessions {
			sessions = append(sessions, models.TimetableSession{
				TimetableID: timetableID,
				CourseID:    placement.CourseID,
				RoomID:      placement.RoomID,
				Day:         string(placement.Day),
				StartTime:   engine.ToClock(placement.Start),
				EndTime:     engine.ToClock(placement.End),
			})
		}
	}
	return sessions
}

func proposalResponse(proposal timetableProposal) *dto.GenerateTimetableResponse {
	resp := &dto.GenerateTimetableResponse{
		ProposalID: proposal.ProposalID,
		TermID:     proposal.TermID,
		Policy:     proposal.Policy,
		Status:     proposal.Status,
		Entries:    []dto.TimetableEntryView{},
		Unplaced:   []string{},
		Stats:      proposal.Stats,
		Message:    proposal.Message,
	}
	if proposal.Result == nil {
		return resp
	}
	for _, entry := range proposal.Result.Entries {
		view := dto.TimetableEntryView{CourseID: entry.CourseID}
		for _, placement := range entry.Sessions {
			view.Sessions = append(view.Sessions, dto.SessionView{
				Day:    string(placement.Day),
				Start:  engine.ToClock(placement.Start),
				End:    engine.ToClock(placement.End),
				RoomID: placement.RoomID,
			})
		}
		resp.Entries = append(resp.Entries, view)
	}
	if len(proposal.Result.Unplaced) > 0 {
		resp.Unplaced = append(resp.Unplaced, proposal.Result.Unplaced...)
	}
	return resp
}

// timetableProposal is the in-memory record of one generation run.
type timetableProposal struct {
	ProposalID  string
	TermID      string
	Policy      string
	Status      string
	Result      *engine.Result
	Stats       *dto.RunStats
	Message     string
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

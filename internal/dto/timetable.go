package dto

// GenerateTimetableRequest starts a scheduling run for a term.
type GenerateTimetableRequest struct {
	TermID string `json:"termId" validate:"required"`
	Policy string `json:"policy" validate:"omitempty,oneof=strict best_effort"`
	Async  bool   `json:"async"`
}

// SessionView is one scheduled meeting in API shape, with clock times.
type SessionView struct {
	Day    string `json:"day"`
	Start  string `json:"start"`
	End    string `json:"end"`
	RoomID string `json:"roomId"`
}

// TimetableEntryView groups the sessions of one placed course.
type TimetableEntryView struct {
	CourseID string        `json:"courseId"`
	Sessions []SessionView `json:"sessions"`
}

// RunStats summarises the search effort of a completed run.
type RunStats struct {
	Nodes      int   `json:"nodes"`
	Backtracks int   `json:"backtracks"`
	DurationMs int64 `json:"durationMs"`
}

// Proposal lifecycle states for asynchronous runs.
const (
	ProposalStatusPending    = "PENDING"
	ProposalStatusCompleted  = "COMPLETED"
	ProposalStatusInfeasible = "INFEASIBLE"
	ProposalStatusFailed     = "FAILED"
)

// GenerateTimetableResponse returns the run outcome, or a pending marker
// for asynchronous runs.
type GenerateTimetableResponse struct {
	ProposalID string               `json:"proposalId"`
	TermID     string               `json:"termId"`
	Policy     string               `json:"policy"`
	Status     string               `json:"status"`
	Entries    []TimetableEntryView `json:"entries"`
	Unplaced   []string             `json:"unplaced"`
	Stats      *RunStats            `json:"stats,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// SaveTimetableRequest persists a completed proposal.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Publish    bool   `json:"publish"`
}

// TimetableQuery filters persisted timetables by term.
type TimetableQuery struct {
	TermID string `form:"termId" json:"termId"`
}

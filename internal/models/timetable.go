package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableStatus represents lifecycle phases for persisted timetables.
type TimetableStatus string

const (
	TimetableStatusDraft     TimetableStatus = "DRAFT"
	TimetableStatusPublished TimetableStatus = "PUBLISHED"
)

// Timetable is a persisted scheduling run outcome for one term.
type Timetable struct {
	ID        string          `db:"id" json:"id"`
	TermID    string          `db:"term_id" json:"term_id"`
	Policy    string          `db:"policy" json:"policy"`
	Status    TimetableStatus `db:"status" json:"status"`
	Meta      types.JSONText  `db:"meta" json:"meta"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}

// TimetableSession is one committed session row inside a timetable.
// Start and End are clock strings (HH:MM).
type TimetableSession struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	Day         string    `db:"day" json:"day"`
	StartTime   string    `db:"start_time" json:"start"`
	EndTime     string    `db:"end_time" json:"end"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Instructor is a teaching staff member. Load limits live on the
// per-term attachment, not here.
type Instructor struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter describes query params for listing instructors.
type InstructorFilter struct {
	Search   string
	Page     int
	PageSize int
}

// InstructorTerm attaches an instructor to a term together with the load
// limits the timetable engine enforces. AvailableDays is a JSON array of
// day names; empty means all operating days.
type InstructorTerm struct {
	ID               string         `db:"id" json:"id"`
	InstructorID     string         `db:"instructor_id" json:"instructor_id"`
	TermID           string         `db:"term_id" json:"term_id"`
	MaxDailyMinutes  int            `db:"max_daily_minutes" json:"max_daily_minutes"`
	MaxWeeklyMinutes int            `db:"max_weekly_minutes" json:"max_weekly_minutes"`
	AvailableDays    types.JSONText `db:"available_days" json:"available_days,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// InstructorTermDetail joins the instructor name onto a term attachment
// for list views and engine snapshots.
type InstructorTermDetail struct {
	InstructorTerm
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

package engine

import (
	"errors"
	"fmt"
)

// Day is one of the five operating weekdays.
type Day string

const (
	DaySat Day = "Sat"
	DaySun Day = "Sun"
	DayMon Day = "Mon"
	DayTue Day = "Tue"
	DayWed Day = "Wed"
)

// OperatingDays lists the teaching days in enumeration order. Day-pair
// generation and all ranked enumerations follow this order, which keeps
// runs deterministic for identical inputs.
var OperatingDays = []Day{DaySat, DaySun, DayMon, DayTue, DayWed}

// Level is the academic level of a course cohort.
type Level string

const (
	LevelUndergraduate Level = "Undergraduate"
	LevelGraduate      Level = "Graduate"
	LevelPhD           Level = "PhD"
)

// Policy selects the completion behaviour of a scheduling run.
type Policy string

const (
	// PolicyStrict requires every course to be placed; the run either
	// returns a complete timetable or reports infeasibility.
	PolicyStrict Policy = "strict"
	// PolicyBestEffort places as many courses as possible, skipping a
	// course once its candidate space is exhausted without reopening
	// earlier commitments.
	PolicyBestEffort Policy = "best_effort"
)

// Room is a schedulable room with a seating capacity.
type Room struct {
	ID       string
	Capacity int
}

// Instructor carries the per-term load limits for one instructor.
// AvailableDays defaults to all operating days when empty.
type Instructor struct {
	ID               string
	Name             string
	MaxDailyMinutes  int
	MaxWeeklyMinutes int
	AvailableDays    []Day
}

// Course is a unit of instruction requiring SessionCount weekly sessions.
type Course struct {
	ID           string
	Name         string
	InstructorID string
	SessionCount int
	Duration     int
	Capacity     int
	Level        Level
	Term         int
}

// SessionPlacement is one scheduled meeting of a course. Start and End are
// minute offsets from midnight; callers convert to clock strings with
// ToClock when serialising.
type SessionPlacement struct {
	CourseID string
	RoomID   string
	Day      Day
	Start    int
	End      int
}

// ScheduleEntry holds all committed sessions of one course. A course is
// either fully present or absent from a result; partial placement is never
// observable.
type ScheduleEntry struct {
	CourseID string
	Sessions []SessionPlacement
}

// Snapshot is the full read-only input of one scheduling run.
type Snapshot struct {
	Rooms       []Room
	Instructors []Instructor
	Courses     []Course
}

// Result is the outcome of a completed run. Unplaced is always empty for
// a successful strict run.
type Result struct {
	Entries  []ScheduleEntry
	Unplaced []string
}

// ErrInfeasible reports that a strict run exhausted the search space
// without a complete assignment. It is a defined outcome, not an input
// error.
var ErrInfeasible = errors.New("no feasible timetable exists")

// ErrBudgetExhausted reports that a run hit the caller-imposed node budget
// before completing its search.
var ErrBudgetExhausted = errors.New("scheduling budget exhausted")

// InputError describes an invalid entity in the snapshot, detected before
// the search starts.
type InputError struct {
	Entity string
	ID     string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

func inputErr(entity, id, format string, args ...interface{}) *InputError {
	return &InputError{Entity: entity, ID: id, Reason: fmt.Sprintf(format, args...)}
}

// availableDays resolves an instructor's teaching days, defaulting to all
// operating days, in operating-day order.
func availableDays(in *Instructor) []Day {
	if len(in.AvailableDays) == 0 {
		return OperatingDays
	}
	allowed := make(map[Day]bool, len(in.AvailableDays))
	for _, d := range in.AvailableDays {
		allowed[d] = true
	}
	days := make([]Day, 0, len(in.AvailableDays))
	for _, d := range OperatingDays {
		if allowed[d] {
			days = append(days, d)
		}
	}
	return days
}

package models

import "time"

// CourseLevel is the academic level of a course cohort.
type CourseLevel string

const (
	CourseLevelUndergraduate CourseLevel = "Undergraduate"
	CourseLevelGraduate      CourseLevel = "Graduate"
	CourseLevelPhD           CourseLevel = "PhD"
)

// Course is a unit of instruction offered within a term. It references an
// instructor-term attachment rather than an instructor directly, so load
// limits always match the term being scheduled.
type Course struct {
	ID               string      `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	InstructorTermID string      `db:"instructor_term_id" json:"instructor_term_id"`
	SessionCount     int         `db:"session_count" json:"session_count"`
	Duration         int         `db:"duration" json:"duration"`
	Capacity         int         `db:"capacity" json:"capacity"`
	Level            CourseLevel `db:"level" json:"level"`
	ForTerm          int         `db:"for_term" json:"for_term"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`
}

// CourseDetail joins the owning instructor id onto a course for engine
// snapshots.
type CourseDetail struct {
	Course
	InstructorID string `db:"instructor_id" json:"instructor_id"`
}

// CourseFilter describes query params for listing courses.
type CourseFilter struct {
	TermID   string
	Level    CourseLevel
	Page     int
	PageSize int
}

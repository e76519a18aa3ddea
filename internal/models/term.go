package models

import "time"

// TermType distinguishes the academic term within a year.
type TermType string

const (
	TermTypeFirst  TermType = "first"
	TermTypeSecond TermType = "second"
	TermTypeSummer TermType = "summer"
)

// Term is one academic term. Summer terms start and end in the same year;
// first and second terms span exactly one year boundary.
type Term struct {
	ID        string    `db:"id" json:"id"`
	YearStart int       `db:"year_start" json:"year_start"`
	YearEnd   int       `db:"year_end" json:"year_end"`
	Type      TermType  `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TermFilter describes query params for listing terms.
type TermFilter struct {
	Type     TermType
	Page     int
	PageSize int
}

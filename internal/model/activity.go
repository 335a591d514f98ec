package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used for record dates and bucket keys.
const DateLayout = "2006-01-02"

// Category identifies the kind of activity being logged.
type Category string

const (
	CategoryBook      Category = "book"
	CategorySeries    Category = "series"
	CategoryMovie     Category = "movie"
	CategoryGame      Category = "game"
	CategoryEducation Category = "education"
	CategorySport     Category = "sport"
)

// Categories lists every supported category in display order.
var Categories = []Category{
	CategoryBook,
	CategorySeries,
	CategoryMovie,
	CategoryGame,
	CategoryEducation,
	CategorySport,
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", &ValidationError{Field: "category", Message: "unknown category " + s}
	}
	return c, nil
}

// ActivityRecord is one logged occurrence of a category on a calendar date.
// JSON names match the persisted bucket format.
type ActivityRecord struct {
	// ID is client-generated and stable across local and remote tiers.
	ID string `json:"id"`

	// RemoteID is assigned by the remote store on first successful mirror.
	RemoteID string `json:"remoteId,omitempty"`

	Title    string   `json:"title"`
	Category Category `json:"category"`

	// Detail is the category-encoded payload (see SeriesDetail, SportDetail).
	Detail string `json:"detail"`

	IsCompleted bool `json:"isCompleted"`

	// Rating is 0-10; 0 means unset.
	Rating int `json:"rating"`

	// Timestamp is the creation or last-touch instant. Zero when unknown.
	Timestamp time.Time `json:"timestamp"`

	// Date is the logical day (YYYY-MM-DD, local calendar) the record belongs to.
	Date string `json:"date"`

	// IsGoal marks a future-dated, not-yet-completed intention.
	IsGoal bool `json:"isGoal"`
}

// LocalOnly reports whether the record has never been mirrored remotely.
func (r ActivityRecord) LocalOnly() bool {
	return r.RemoteID == ""
}

// RemoteKey returns the key used for remote operations: RemoteID when
// present, otherwise ID.
func (r ActivityRecord) RemoteKey() string {
	if r.RemoteID != "" {
		return r.RemoteID
	}
	return r.ID
}

// DayKey returns the calendar day the record counts toward. It falls back
// to the local date of Timestamp, then to the date of now.
func (r ActivityRecord) DayKey(now time.Time) string {
	if r.Date != "" {
		return r.Date
	}
	if !r.Timestamp.IsZero() {
		return FormatDate(r.Timestamp)
	}
	return FormatDate(now)
}

// RecomputeGoal refreshes IsGoal from Date and IsCompleted relative to today.
func (r *ActivityRecord) RecomputeGoal(today string) {
	r.IsGoal = ComputeIsGoal(r.Date, r.IsCompleted, today)
}

// ComputeIsGoal is the single rule for the derived goal flag: a record is a
// goal-in-waiting when it is dated after today and not yet completed.
// Dates compare lexically because both use DateLayout.
func ComputeIsGoal(date string, isCompleted bool, today string) bool {
	return date > today && !isCompleted
}

// Validate checks user-supplied fields. It returns a *ValidationError on the
// first problem found.
func (r ActivityRecord) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return &ValidationError{Field: "title", Message: "title must not be empty"}
	}
	if r.Category == "" {
		return &ValidationError{Field: "category", Message: "category must be set"}
	}
	if !r.Category.Valid() {
		return &ValidationError{Field: "category", Message: "unknown category " + string(r.Category)}
	}
	if r.Rating < 0 || r.Rating > 10 {
		return &ValidationError{Field: "rating", Message: "rating must be between 0 and 10"}
	}
	if _, err := ParseDate(r.Date); err != nil {
		return &ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	if r.Category == CategorySeries {
		if _, err := ParseSeriesDetail(r.Detail); err != nil {
			return err
		}
	}
	return nil
}

// FormatDate renders t as a local calendar day.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string as local midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// AddDays shifts a YYYY-MM-DD string by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

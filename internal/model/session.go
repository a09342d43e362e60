package model

import "time"

// Status is the lifecycle state of an extraction session. The three terminal
// states are absorbing.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusStopped    Status = "stopped"
	StatusError      Status = "error"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusStopped || s == StatusError
}

// Progress is a transient view of a running walk. Total is an estimate and
// may be wrong in either direction.
type Progress struct {
	Current        int `json:"current"`
	Total          int `json:"total"`
	ScrollAttempts int `json:"scroll_attempts"`
}

// Session is the envelope around one extraction run. It is mutated only by
// the session controller while in progress and frozen on any terminal
// transition.
type Session struct {
	ID                string           `json:"id"`
	Query             string           `json:"query"`
	Location          string           `json:"location,omitempty"`
	RadiusKm          float64          `json:"radius_km,omitempty"`
	Status            Status           `json:"status"`
	StartTime         time.Time        `json:"start_time"`
	EndTime           *time.Time       `json:"end_time,omitempty"`
	BusinessesFound   int              `json:"businesses_found"`
	PhoneNumbersFound int              `json:"phone_numbers_found"`
	Error             string           `json:"error,omitempty"`
	Results           []BusinessRecord `json:"results"`
}

// ExtractParams holds all configuration for one extraction session. Values
// are read once at session start and treated as immutable for its duration.
type ExtractParams struct {
	Query    string
	Location string
	RadiusKm float64

	MaxEntries        int
	ScrollDelay       time.Duration
	MaxScrollAttempts int

	ExtractDetails bool
	RequirePhone   bool
	VerifyWebsites bool

	Headless bool
	DBPath   string
}

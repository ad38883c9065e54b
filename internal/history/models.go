package history

import "time"

// Entry is one dispatched command and its eventual outcome.
type Entry struct {
	ID          string
	Kind        string
	InputID     string
	Layer       int
	SubmittedAt time.Time
	ResolvedAt  *time.Time
	Status      string
	Detail      string
}

// Profile is a saved connection target.
type Profile struct {
	Name      string
	Host      string
	Port      int
	UpdatedAt time.Time
}

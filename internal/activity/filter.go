package activity

import "time"

// Order selects the created_at direction of a search.
type Order string

const (
	OrderNewest Order = "newest"
	OrderOldest Order = "oldest"
)

// Filter is a validated search as executed by a Store. Empty fields match
// everything; Limit zero means no limit.
type Filter struct {
	LogChannel  string
	Events      []Event
	SubjectType string
	SubjectID   string
	CauserType  string
	CauserID    string
	Since       time.Time
	Until       time.Time
	Order       Order
	Limit       int
	Offset      int
}

// Matches applies the filter to a single record. Used by in-memory stores.
func (f Filter) Matches(r Record) bool {
	if f.LogChannel != "" && r.LogChannel != f.LogChannel {
		return false
	}
	if len(f.Events) > 0 && !containsEvent(f.Events, r.Event) {
		return false
	}
	if f.SubjectType != "" && r.SubjectType != f.SubjectType {
		return false
	}
	if f.SubjectID != "" && r.SubjectID != f.SubjectID {
		return false
	}
	if f.CauserType != "" && r.CauserType != f.CauserType {
		return false
	}
	if f.CauserID != "" && r.CauserID != f.CauserID {
		return false
	}
	if !f.Since.IsZero() && r.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

func containsEvent(events []Event, e Event) bool {
	for _, candidate := range events {
		if candidate == e {
			return true
		}
	}
	return false
}

// Package activity defines the immutable activity record written whenever a
// tracked entity is created, updated, soft-deleted or hits a named milestone,
// together with the typed properties each event carries.
package activity

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event names what happened to the subject.
type Event string

const (
	EventCreated   Event = "created"
	EventUpdated   Event = "updated"
	EventDeleted   Event = "deleted"
	EventPublished Event = "published"
)

// EventSet is the explicit list of recognised event names.
type EventSet map[Event]struct{}

// NewEventSet returns the lifecycle events plus published and any custom
// events.
func NewEventSet(custom ...Event) EventSet {
	set := EventSet{
		EventCreated:   {},
		EventUpdated:   {},
		EventDeleted:   {},
		EventPublished: {},
	}
	for _, e := range custom {
		if e = Event(strings.ToLower(strings.TrimSpace(string(e)))); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func (s EventSet) Has(e Event) bool {
	_, ok := s[e]
	return ok
}

// SubjectRef identifies the entity a record is about.
type SubjectRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (s SubjectRef) IsZero() bool {
	return s.Type == "" || s.ID == ""
}

func (s SubjectRef) String() string {
	return s.Type + ":" + s.ID
}

// Actor identifies who caused a change. The zero value means the system.
type Actor struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (a Actor) IsZero() bool {
	return a.ID == ""
}

// Record is one persisted activity entry. Records are never updated after
// the store accepts them.
type Record struct {
	ID          string         `json:"id"`
	LogChannel  string         `json:"log_channel"`
	Event       Event          `json:"event"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	CauserType  string         `json:"causer_type,omitempty"`
	CauserID    string         `json:"causer_id,omitempty"`
	Properties  map[string]any `json:"properties"`
	Description string         `json:"description"`
	IPAddress   string         `json:"ip_address,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	URL         string         `json:"url,omitempty"`
	HTTPMethod  string         `json:"http_method,omitempty"`
	RequestID   string         `json:"request_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (r Record) Subject() SubjectRef {
	return SubjectRef{Type: r.SubjectType, ID: r.SubjectID}
}

func (r Record) Causer() Actor {
	return Actor{Type: r.CauserType, ID: r.CauserID}
}

var (
	ErrMissingSubject = errors.New("activity record has no subject")
	ErrUnknownEvent   = errors.New("activity record has an unrecognised event")
	ErrMissingChanges = errors.New("updated activity record has no changed_fields")
)

// Validate checks the record invariants before it leaves the request path.
func (r Record) Validate(events EventSet) error {
	if r.SubjectType == "" || r.SubjectID == "" {
		return ErrMissingSubject
	}
	if !events.Has(r.Event) {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, r.Event)
	}
	if r.Event == EventUpdated {
		if !hasChangedFields(r.Properties) {
			return ErrMissingChanges
		}
	}
	return nil
}

func hasChangedFields(props map[string]any) bool {
	switch fields := props[KeyChangedFields].(type) {
	case []string:
		return len(fields) > 0
	case []any:
		return len(fields) > 0
	default:
		return false
	}
}

// Describe builds the one-line description stored with a record.
func Describe(kind string, event Event, changedFields []string) string {
	desc := kind + " " + string(event)
	if event == EventUpdated && len(changedFields) > 0 {
		desc += ": " + strings.Join(changedFields, ", ")
	}
	return desc
}

// Channel derives the log channel from a subject kind.
func Channel(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

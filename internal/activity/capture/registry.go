// Package capture turns entity lifecycle transitions into activity
// properties. Entities opt in by implementing Loggable and being listed in a
// Registry; nothing is captured implicitly.
package capture

import (
	"maps"
	"slices"
	"strings"

	"vowly/internal/activity"
)

// Loggable is implemented by entities whose changes are recorded.
type Loggable interface {
	// ActivityKind is the subject type, e.g. "wedding".
	ActivityKind() string
	// ActivityID is empty until the entity is persisted.
	ActivityID() string
	// ActivityAttributes returns the attribute set to snapshot and diff.
	ActivityAttributes() map[string]any
}

// diffIgnored is kept in snapshots but never counts as a change on its own.
var diffIgnored = map[string]struct{}{"updated_at": {}}

type kindConfig struct {
	events   map[activity.Event]struct{}
	narrowed bool
	ignored  map[string]struct{}
}

// Registry is the explicit list of logged kinds.
type Registry struct {
	kinds       map[string]kindConfig
	deleteAllow map[string]struct{}
	events      activity.EventSet
}

// KindOption configures one registered kind.
type KindOption func(*kindConfig)

// WithEvents limits the lifecycle and custom events logged for a kind.
// Without it, created and updated are logged; deleted additionally needs the
// kind on the delete allow-list.
func WithEvents(events ...activity.Event) KindOption {
	return func(c *kindConfig) {
		c.events = make(map[activity.Event]struct{}, len(events))
		c.narrowed = true
		for _, e := range events {
			c.events[e] = struct{}{}
		}
	}
}

// WithIgnoredAttributes drops attributes such as secrets from snapshots and
// diffs.
func WithIgnoredAttributes(attrs ...string) KindOption {
	return func(c *kindConfig) {
		for _, a := range attrs {
			c.ignored[a] = struct{}{}
		}
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDeleteAllowList sets the kinds whose soft deletes are logged.
func WithDeleteAllowList(kinds ...string) RegistryOption {
	return func(r *Registry) {
		r.deleteAllow = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			r.deleteAllow[normalizeKind(k)] = struct{}{}
		}
	}
}

// WithCustomEvents adds recognised event names beyond the built-in ones.
func WithCustomEvents(events ...activity.Event) RegistryOption {
	return func(r *Registry) {
		r.events = activity.NewEventSet(events...)
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		kinds:       make(map[string]kindConfig),
		deleteAllow: make(map[string]struct{}),
		events:      activity.NewEventSet(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a kind to the registration list.
func (r *Registry) Register(kind string, opts ...KindOption) *Registry {
	cfg := kindConfig{
		events: map[activity.Event]struct{}{
			activity.EventCreated: {},
			activity.EventUpdated: {},
			activity.EventDeleted: {},
		},
		ignored: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	r.kinds[normalizeKind(kind)] = cfg
	return r
}

// Events returns the recognised event names.
func (r *Registry) Events() activity.EventSet {
	return r.events
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []string {
	return slices.Sorted(maps.Keys(r.kinds))
}

// Logs reports whether event is recorded for kind.
func (r *Registry) Logs(kind string, event activity.Event) bool {
	kind = normalizeKind(kind)
	cfg, ok := r.kinds[kind]
	if !ok || !r.events.Has(event) {
		return false
	}
	if event == activity.EventDeleted {
		if _, allowed := r.deleteAllow[kind]; !allowed {
			return false
		}
	}
	if !cfg.narrowed && !isLifecycle(event) {
		return true
	}
	_, enabled := cfg.events[event]
	return enabled
}

func (r *Registry) ignored(kind string) map[string]struct{} {
	return r.kinds[normalizeKind(kind)].ignored
}

func isLifecycle(e activity.Event) bool {
	return e == activity.EventCreated || e == activity.EventUpdated || e == activity.EventDeleted
}

func normalizeKind(kind string) string {
	return strings.ToLower(strings.TrimSpace(kind))
}

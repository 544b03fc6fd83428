package capture

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"vowly/internal/activity"
)

var (
	// ErrSkip means there is nothing to log: unregistered kind, unsaved
	// entity, delete outside the allow-list, or an update with no changes.
	ErrSkip = errors.New("activity capture skipped")
	// ErrCapture means the entity produced attributes that cannot be stored.
	ErrCapture = errors.New("activity capture failed")
)

// Capturer builds typed properties for registered kinds.
type Capturer struct {
	registry *Registry
}

func NewCapturer(registry *Registry) *Capturer {
	return &Capturer{registry: registry}
}

func (c *Capturer) Registry() *Registry {
	return c.registry
}

// Created snapshots the full attribute set of a newly persisted entity.
func (c *Capturer) Created(entity Loggable) (activity.CreatedProperties, error) {
	kind, id, err := c.admit(entity, activity.EventCreated)
	if err != nil {
		return activity.CreatedProperties{}, err
	}
	attrs, err := c.snapshot(kind, entity.ActivityAttributes())
	if err != nil {
		return activity.CreatedProperties{}, err
	}
	return activity.CreatedProperties{Model: kind, ModelID: id, Attributes: attrs}, nil
}

// Updated diffs entity against original, the attribute set loaded before
// the change was applied. Keys present on either side are compared.
func (c *Capturer) Updated(entity Loggable, original map[string]any) (activity.UpdatedProperties, error) {
	kind, id, err := c.admit(entity, activity.EventUpdated)
	if err != nil {
		return activity.UpdatedProperties{}, err
	}
	current, err := c.snapshot(kind, entity.ActivityAttributes())
	if err != nil {
		return activity.UpdatedProperties{}, err
	}
	previous, err := c.snapshot(kind, original)
	if err != nil {
		return activity.UpdatedProperties{}, err
	}

	props := activity.UpdatedProperties{
		Model:    kind,
		ModelID:  id,
		Changes:  make(map[string]any),
		Original: make(map[string]any),
	}
	fields := make(map[string]struct{}, len(current))
	for k := range current {
		fields[k] = struct{}{}
	}
	for k := range previous {
		fields[k] = struct{}{}
	}
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		if _, skip := diffIgnored[field]; skip {
			continue
		}
		// a missing key reads as null on that side
		newValue, oldValue := current[field], previous[field]
		if equalValues(oldValue, newValue) {
			continue
		}
		props.Changes[field] = newValue
		props.Original[field] = oldValue
		props.ChangedFields = append(props.ChangedFields, field)
		props.ChangeSummary = append(props.ChangeSummary, SummaryEntry(field, oldValue, newValue))
	}
	if len(props.ChangedFields) == 0 {
		return activity.UpdatedProperties{}, ErrSkip
	}
	return props, nil
}

// Deleted snapshots the attribute set as of a soft delete. Only kinds on the
// delete allow-list are captured.
func (c *Capturer) Deleted(entity Loggable) (activity.DeletedProperties, error) {
	kind, id, err := c.admit(entity, activity.EventDeleted)
	if err != nil {
		return activity.DeletedProperties{}, err
	}
	attrs, err := c.snapshot(kind, entity.ActivityAttributes())
	if err != nil {
		return activity.DeletedProperties{}, err
	}
	return activity.DeletedProperties{Model: kind, ModelID: id, Attributes: attrs}, nil
}

// Custom builds properties for a named milestone such as published.
func (c *Capturer) Custom(entity Loggable, event activity.Event, extra map[string]any) (activity.CustomProperties, error) {
	kind, id, err := c.admit(entity, event)
	if err != nil {
		return activity.CustomProperties{}, err
	}
	if _, err := json.Marshal(extra); err != nil {
		return activity.CustomProperties{}, fmt.Errorf("%w: %s %s: %v", ErrCapture, kind, id, err)
	}
	return activity.CustomProperties{Model: kind, ModelID: id, Extra: extra}, nil
}

func (c *Capturer) admit(entity Loggable, event activity.Event) (kind, id string, err error) {
	if entity == nil {
		return "", "", ErrSkip
	}
	kind = normalizeKind(entity.ActivityKind())
	id = entity.ActivityID()
	if id == "" || !c.registry.Logs(kind, event) {
		return "", "", ErrSkip
	}
	return kind, id, nil
}

// snapshot drops ignored attributes, normalises times at full precision and
// proves the result is JSON-serialisable.
func (c *Capturer) snapshot(kind string, attrs map[string]any) (map[string]any, error) {
	ignored := c.registry.ignored(kind)
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if _, skip := ignored[k]; skip {
			continue
		}
		out[k] = normalize(v)
	}
	if _, err := json.Marshal(out); err != nil {
		return nil, fmt.Errorf("%w: %s attributes: %v", ErrCapture, kind, err)
	}
	return out, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}

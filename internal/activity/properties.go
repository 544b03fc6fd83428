package activity

import "maps"

// Conventional property keys.
const (
	KeyModel         = "model"
	KeyModelID       = "model_id"
	KeyAttributes    = "attributes"
	KeyChanges       = "changes"
	KeyOriginal      = "original"
	KeyChangedFields = "changed_fields"
	KeyChangeSummary = "change_summary"
)

// Properties is the typed payload attached to a record. Extra carries keys
// outside the conventional set; it never overrides them.
type Properties interface {
	Map() map[string]any
	isProperties()
}

type CreatedProperties struct {
	Model      string
	ModelID    string
	Attributes map[string]any
	Extra      map[string]any
}

type UpdatedProperties struct {
	Model         string
	ModelID       string
	Changes       map[string]any
	Original      map[string]any
	ChangedFields []string
	ChangeSummary []string
	Extra         map[string]any
}

type DeletedProperties struct {
	Model      string
	ModelID    string
	Attributes map[string]any
	Extra      map[string]any
}

// CustomProperties backs named events such as published.
type CustomProperties struct {
	Model      string
	ModelID    string
	Attributes map[string]any
	Extra      map[string]any
}

func (CreatedProperties) isProperties() {}
func (UpdatedProperties) isProperties() {}
func (DeletedProperties) isProperties() {}
func (CustomProperties) isProperties()  {}

func (p CreatedProperties) Map() map[string]any {
	m := base(p.Model, p.ModelID)
	m[KeyAttributes] = nonNil(p.Attributes)
	return withExtra(m, p.Extra)
}

func (p UpdatedProperties) Map() map[string]any {
	m := base(p.Model, p.ModelID)
	m[KeyChanges] = nonNil(p.Changes)
	m[KeyOriginal] = nonNil(p.Original)
	m[KeyChangedFields] = p.ChangedFields
	m[KeyChangeSummary] = p.ChangeSummary
	return withExtra(m, p.Extra)
}

func (p DeletedProperties) Map() map[string]any {
	m := base(p.Model, p.ModelID)
	m[KeyAttributes] = nonNil(p.Attributes)
	return withExtra(m, p.Extra)
}

func (p CustomProperties) Map() map[string]any {
	m := base(p.Model, p.ModelID)
	if len(p.Attributes) > 0 {
		m[KeyAttributes] = p.Attributes
	}
	return withExtra(m, p.Extra)
}

// Passthrough wraps a raw map for callers that log ad-hoc events.
type Passthrough map[string]any

func (Passthrough) isProperties() {}

func (p Passthrough) Map() map[string]any {
	return maps.Clone(map[string]any(p))
}

func base(model, modelID string) map[string]any {
	m := make(map[string]any, 8)
	if model != "" {
		m[KeyModel] = model
	}
	if modelID != "" {
		m[KeyModelID] = modelID
	}
	return m
}

func withExtra(m, extra map[string]any) map[string]any {
	for k, v := range extra {
		if _, taken := m[k]; !taken {
			m[k] = v
		}
	}
	return m
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Package postgres persists activity records in the activity_log table.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"vowly/internal/activity"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the table and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure activity_log schema: %w", err)
	}
	return nil
}

// Append inserts the record. Duplicate IDs are ignored so retried
// deliveries are harmless.
func (s *Store) Append(ctx context.Context, r activity.Record) error {
	props := r.Properties
	if props == nil {
		props = map[string]any{}
	}
	payload, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("marshal activity properties: %w", err)
	}

	query := `
		INSERT INTO activity_log (
			id, log_channel, event, subject_type, subject_id,
			causer_type, causer_id, properties, description,
			ip_address, user_agent, url, http_method, request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, COALESCE($15::timestamptz, now()))
		ON CONFLICT (id) DO NOTHING
	`
	var createdAt any
	if !r.CreatedAt.IsZero() {
		createdAt = r.CreatedAt
	}
	_, err = s.db.ExecContext(ctx, query,
		r.ID,
		r.LogChannel,
		string(r.Event),
		r.SubjectType,
		r.SubjectID,
		nullable(r.CauserType),
		nullable(r.CauserID),
		payload,
		r.Description,
		nullable(r.IPAddress),
		nullable(r.UserAgent),
		nullable(r.URL),
		nullable(r.HTTPMethod),
		nullable(r.RequestID),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity record: %w", err)
	}
	return nil
}

// Search runs a filtered, ordered query. Ties on created_at are broken by
// id, which is time-ordered.
func (s *Store) Search(ctx context.Context, f activity.Filter) ([]activity.Record, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.LogChannel != "" {
		add("log_channel = $%d", f.LogChannel)
	}
	if len(f.Events) == 1 {
		add("event = $%d", string(f.Events[0]))
	} else if len(f.Events) > 1 {
		names := make([]string, len(f.Events))
		for i, e := range f.Events {
			names[i] = string(e)
		}
		add("event = ANY($%d::text[])", pq.Array(names))
	}
	if f.SubjectType != "" {
		add("subject_type = $%d", f.SubjectType)
	}
	if f.SubjectID != "" {
		add("subject_id = $%d", f.SubjectID)
	}
	if f.CauserType != "" {
		add("causer_type = $%d", f.CauserType)
	}
	if f.CauserID != "" {
		add("causer_id = $%d", f.CauserID)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at <= $%d", f.Until)
	}

	var b strings.Builder
	b.WriteString(`
		SELECT id, log_channel, event, subject_type, subject_id,
			COALESCE(causer_type, ''), COALESCE(causer_id, ''),
			properties, description,
			COALESCE(ip_address, ''), COALESCE(user_agent, ''),
			COALESCE(url, ''), COALESCE(http_method, ''), COALESCE(request_id, ''),
			created_at
		FROM activity_log`)
	if len(where) > 0 {
		b.WriteString("\n\t\tWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if f.Order == activity.OrderOldest {
		b.WriteString("\n\t\tORDER BY created_at ASC, id ASC")
	} else {
		b.WriteString("\n\t\tORDER BY created_at DESC, id DESC")
	}
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, "\n\t\tLIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, "\n\t\tOFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query activity records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]activity.Record, error) {
	var records []activity.Record
	for rows.Next() {
		var (
			r     activity.Record
			event string
			props []byte
		)
		err := rows.Scan(
			&r.ID,
			&r.LogChannel,
			&event,
			&r.SubjectType,
			&r.SubjectID,
			&r.CauserType,
			&r.CauserID,
			&props,
			&r.Description,
			&r.IPAddress,
			&r.UserAgent,
			&r.URL,
			&r.HTTPMethod,
			&r.RequestID,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan activity record: %w", err)
		}
		r.Event = activity.Event(event)
		if len(props) > 0 {
			if err := json.Unmarshal(props, &r.Properties); err != nil {
				return nil, fmt.Errorf("decode activity properties %s: %w", r.ID, err)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity records: %w", err)
	}
	return records, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

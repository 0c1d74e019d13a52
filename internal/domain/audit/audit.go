package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resourceId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Filter struct {
	ActorID  string
	Action   string
	Resource string
}

// Service is a write-only audit sink. Record never fails the caller: a
// failed insert is logged and dropped.
type Service struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, actorID, action, resource, resourceID string, details any) {
	var detailsJSON []byte
	if details != nil {
		payload, err := json.Marshal(details)
		if err != nil {
			slog.Warn("audit details marshal failed", "action", action, "err", err)
		} else {
			detailsJSON = payload
		}
	}

	_, err := s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_id, action, resource, resource_id, details)
    VALUES (NULLIF($1,'')::uuid,$2,$3,$4,$5)
  `, actorID, action, resource, resourceID, detailsJSON)
	if err != nil {
		slog.Warn("audit record failed", "action", action, "resource", resource, "err", err)
	}
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	query := `
    SELECT id, COALESCE(actor_id::text, ''), action, resource, resource_id, details, created_at
    FROM audit_events
    WHERE 1=1
  `
	var args []any
	if filter.ActorID != "" {
		args = append(args, filter.ActorID)
		query += fmt.Sprintf(" AND actor_id::text = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.Resource != "" {
		args = append(args, filter.Resource)
		query += fmt.Sprintf(" AND resource = $%d", len(args))
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.Resource, &evt.ResourceID, &evt.Details, &evt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

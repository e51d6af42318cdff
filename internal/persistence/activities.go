package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/basket/mission-control/internal/domain"
)

// CreateActivity appends one audit-trail row. Activities are never updated
// or deleted directly; they cascade away with their task.
func (s *Store) CreateActivity(ctx context.Context, a *domain.Activity) error {
	err := retryOnBusy(ctx, 3, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO activities (id, task_id, agent_id, action, details)
			VALUES (?, ?, ?, ?, ?);
		`, a.ID, nullStr(a.TaskID), nullStr(a.AgentID), a.Action, nullStr(a.Details))
		return err
	})
	if err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// ActivityEntry is an activity joined with the acting agent's display name
// for feeds and reports.
type ActivityEntry struct {
	domain.Activity
	AgentName string
}

// RecentActivities returns the newest entries, capped at limit.
func (s *Store) RecentActivities(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.task_id, a.agent_id, a.action, a.details, a.created_at,
			COALESCE(ag.name, '')
		FROM activities a
		LEFT JOIN agents ag ON ag.id = a.agent_id
		ORDER BY a.created_at DESC, a.rowid DESC
		LIMIT ?;
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activities: %w", err)
	}
	defer rows.Close()
	return collectActivityEntries(rows)
}

// ActivitiesBetween returns entries created in [from, until), oldest first.
func (s *Store) ActivitiesBetween(ctx context.Context, from, until time.Time) ([]ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.task_id, a.agent_id, a.action, a.details, a.created_at,
			COALESCE(ag.name, '')
		FROM activities a
		LEFT JOIN agents ag ON ag.id = a.agent_id
		WHERE a.created_at >= ? AND a.created_at < ?
		ORDER BY a.created_at ASC, a.rowid ASC;
	`, from.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("activities between: %w", err)
	}
	defer rows.Close()
	return collectActivityEntries(rows)
}

// CountActivitiesBetween counts entries created in [from, until).
func (s *Store) CountActivitiesBetween(ctx context.Context, from, until time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM activities WHERE created_at >= ? AND created_at < ?;
	`, from.UTC(), until.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return n, nil
}

func collectActivityEntries(rows *sql.Rows) ([]ActivityEntry, error) {
	var entries []ActivityEntry
	for rows.Next() {
		var (
			e                        ActivityEntry
			taskID, agentID, details sql.NullString
		)
		if err := rows.Scan(&e.ID, &taskID, &agentID, &e.Action, &details, &e.CreatedAt, &e.AgentName); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.TaskID = strOrEmpty(taskID)
		e.AgentID = strOrEmpty(agentID)
		e.Details = strOrEmpty(details)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return entries, nil
}

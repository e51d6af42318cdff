package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// Subscribe adds agentID as a watcher of taskID. Reports whether a new row
// was written; subscribing twice is a no-op.
func (s *Store) Subscribe(ctx context.Context, agentID, taskID string) (bool, error) {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO subscriptions (agent_id, task_id) VALUES (?, ?);
		`, agentID, taskID)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("subscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subscribe rows: %w", err)
	}
	return n > 0, nil
}

// Unsubscribe removes the watch. Reports whether a row existed.
func (s *Store) Unsubscribe(ctx context.Context, agentID, taskID string) (bool, error) {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			DELETE FROM subscriptions WHERE agent_id = ? AND task_id = ?;
		`, agentID, taskID)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("unsubscribe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unsubscribe rows: %w", err)
	}
	return n > 0, nil
}

// Subscribers returns the agent IDs watching a task, ordered by when they
// subscribed.
func (s *Store) Subscribers(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id FROM subscriptions WHERE task_id = ? ORDER BY id ASC;
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("subscribers: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		agents = append(agents, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}
	return agents, nil
}

// IsSubscribed reports whether the watch exists.
func (s *Store) IsSubscribed(ctx context.Context, agentID, taskID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM subscriptions WHERE agent_id = ? AND task_id = ?;
	`, agentID, taskID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is subscribed: %w", err)
	}
	return n > 0, nil
}

package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/basket/mission-control/internal/domain"
)

// CreateNotification inserts a notification. When a dedup key is set,
// INSERT OR IGNORE makes repeat deliveries for the same key no-ops; the
// returned bool reports whether a row was actually written.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO notifications (id, agent_id, message_id, task_id, content, type, dedup_key)
			VALUES (?, ?, ?, ?, ?, ?, ?);
		`, n.ID, n.AgentID, nullStr(n.MessageID), nullStr(n.TaskID), n.Content, string(n.Type), nullStr(n.DedupKey))
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create notification rows: %w", err)
	}
	return rows > 0, nil
}

// NotificationFilter narrows ListNotifications. Zero values mean "no
// constraint".
type NotificationFilter struct {
	AgentID    string
	UnreadOnly bool
	Limit      int
}

// ListNotifications returns notifications newest first.
func (s *Store) ListNotifications(ctx context.Context, f NotificationFilter) ([]*domain.Notification, error) {
	var (
		where []string
		args  []any
	)
	if f.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, f.AgentID)
	}
	if f.UnreadOnly {
		where = append(where, "read = 0")
	}

	query := `
		SELECT id, agent_id, message_id, task_id, content, type, read, dedup_key, created_at
		FROM notifications`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifs []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifs, nil
}

// MarkNotificationRead flags one notification as read. Reports whether a
// row matched; unknown IDs are not an error.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) (bool, error) {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?;`, id)
		return execErr
	})
	if err != nil {
		return false, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification rows: %w", err)
	}
	return n > 0, nil
}

// MarkAllNotificationsRead flags every unread notification for the agent and
// reports how many changed.
func (s *Store) MarkAllNotificationsRead(ctx context.Context, agentID string) (int, error) {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			UPDATE notifications SET read = 1 WHERE agent_id = ? AND read = 0;
		`, agentID)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications rows: %w", err)
	}
	return int(n), nil
}

// ClearNotifications deletes every notification for the agent and reports
// how many were removed.
func (s *Store) ClearNotifications(ctx context.Context, agentID string) (int, error) {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			DELETE FROM notifications WHERE agent_id = ?;
		`, agentID)
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("clear notifications: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear notifications rows: %w", err)
	}
	return int(n), nil
}

// UnreadCount returns the agent's unread notification count.
func (s *Store) UnreadCount(ctx context.Context, agentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE agent_id = ? AND read = 0;
	`, agentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// UnreadByAgent returns unread counts keyed by agent ID, covering only
// agents with at least one unread row.
func (s *Store) UnreadByAgent(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, COUNT(*) FROM notifications WHERE read = 0 GROUP BY agent_id;
	`)
	if err != nil {
		return nil, fmt.Errorf("unread by agent: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			agentID string
			n       int
		)
		if err := rows.Scan(&agentID, &n); err != nil {
			return nil, fmt.Errorf("scan unread count: %w", err)
		}
		counts[agentID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unread counts: %w", err)
	}
	return counts, nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n                          domain.Notification
		messageID, taskID, dedup   sql.NullString
		ntype                      string
		read                       int
	)
	err := row.Scan(&n.ID, &n.AgentID, &messageID, &taskID, &n.Content, &ntype, &read, &dedup, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.MessageID = strOrEmpty(messageID)
	n.TaskID = strOrEmpty(taskID)
	n.Type = domain.NotificationType(ntype)
	n.Read = read != 0
	n.DedupKey = strOrEmpty(dedup)
	return &n, nil
}

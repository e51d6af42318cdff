package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/basket/mission-control/internal/domain"
)

// CreateMessage inserts a message row.
func (s *Store) CreateMessage(ctx context.Context, m *domain.Message) error {
	err := retryOnBusy(ctx, 3, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO messages (id, task_id, from_agent_id, to_agent_id, content, type)
			VALUES (?, ?, ?, ?, ?, ?);
		`, m.ID, nullStr(m.TaskID), nullStr(m.FromAgentID), nullStr(m.ToAgentID), m.Content, string(m.Type))
		return err
	})
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// GetMessage returns the message by ID, or nil if not found.
func (s *Store) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, from_agent_id, to_agent_id, content, type, created_at
		FROM messages WHERE id = ?;
	`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// TaskComments returns a task's comment-type messages oldest first.
func (s *Store) TaskComments(ctx context.Context, taskID string) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, from_agent_id, to_agent_id, content, type, created_at
		FROM messages
		WHERE task_id = ? AND type = 'comment'
		ORDER BY created_at ASC, rowid ASC;
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("task comments: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	var (
		m                       domain.Message
		taskID, from, to        sql.NullString
		mtype                   string
	)
	if err := row.Scan(&m.ID, &taskID, &from, &to, &m.Content, &mtype, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.TaskID = strOrEmpty(taskID)
	m.FromAgentID = strOrEmpty(from)
	m.ToAgentID = strOrEmpty(to)
	m.Type = domain.MessageType(mtype)
	return &m, nil
}

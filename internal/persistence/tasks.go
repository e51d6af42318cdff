package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/domain"
)

const taskColumns = `id, title, description, assignee_id, creator_id, status, priority,
	due_date, parent_id, tags, created_at, updated_at, completed_at`

// CreateTask inserts a new task row. The caller supplies the ID and all
// field values; created_at/updated_at come from the database clock.
func (s *Store) CreateTask(ctx context.Context, t *domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	err = retryOnBusy(ctx, 3, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO tasks (id, title, description, assignee_id, creator_id, status, priority, due_date, parent_id, tags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, t.ID, t.Title, nullStr(t.Description), nullStr(t.AssigneeID), nullStr(t.CreatorID),
			string(t.Status), string(t.Priority), nullTime(t.DueDate), nullStr(t.ParentID), tags)
		return err
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// GetTask returns the task by ID, or nil if not found.
func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?;`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// TaskFilter narrows ListTasks. Zero values mean "no constraint".
type TaskFilter struct {
	Status     domain.TaskStatus
	AssigneeID string
	Priority   domain.Priority
	Tag        string
	Limit      int
	Offset     int
}

// ListTasks returns tasks ordered urgent-first by priority, then newest
// within a band, filtered by any combination of status, assignee, priority,
// and tag.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]*domain.Task, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.AssigneeID != "" {
		where = append(where, "assignee_id = ?")
		args = append(args, f.AssigneeID)
	}
	if f.Priority != "" {
		where = append(where, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Tag != "" {
		// tags is a JSON array of strings; match the quoted element.
		where = append(where, "tags LIKE ?")
		args = append(args, `%"`+f.Tag+`"%`)
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY CASE priority
		WHEN 'urgent' THEN 1 WHEN 'high' THEN 2 WHEN 'normal' THEN 3 ELSE 4
	END, created_at DESC, rowid DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	} else if f.Offset > 0 {
		query += " LIMIT -1"
	}
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query+";", args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// UpdateTask writes the full task row and bumps updated_at. The services do
// load-modify-write, so every column is set from the in-memory value.
func (s *Store) UpdateTask(ctx context.Context, t *domain.Task) error {
	tags, err := encodeTags(t.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var res sql.Result
	err = retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `
			UPDATE tasks SET
				title = ?, description = ?, assignee_id = ?, creator_id = ?,
				status = ?, priority = ?, due_date = ?, parent_id = ?, tags = ?,
				completed_at = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?;
		`, t.Title, nullStr(t.Description), nullStr(t.AssigneeID), nullStr(t.CreatorID),
			string(t.Status), string(t.Priority), nullTime(t.DueDate), nullStr(t.ParentID), tags,
			nullTime(t.CompletedAt), t.ID)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("task %s not found", t.ID)
	}
	return nil
}

// DeleteTask removes the task; comments, activities, notifications, and
// subscriptions referencing it cascade, and child tasks are detached.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	var res sql.Result
	err := retryOnBusy(ctx, 3, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?;`, id)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("task %s not found", id)
	}
	return nil
}

// ActiveForAgent returns the agent's open tasks ordered urgent-first, then
// oldest-first within a priority band.
func (s *Store) ActiveForAgent(ctx context.Context, agentID string) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE assignee_id = ? AND status NOT IN ('done', 'cancelled')
		ORDER BY CASE priority
			WHEN 'urgent' THEN 1 WHEN 'high' THEN 2 WHEN 'normal' THEN 3 ELSE 4
		END, created_at ASC, rowid ASC;
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("active tasks for agent: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// CompletedBetween returns the agent's tasks completed in [from, until).
func (s *Store) CompletedBetween(ctx context.Context, agentID string, from, until time.Time) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE assignee_id = ? AND status = 'done'
			AND completed_at >= ? AND completed_at < ?
		ORDER BY completed_at ASC, rowid ASC;
	`, agentID, from.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("completed tasks between: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// DueWithin returns open tasks whose due date falls in [now, until).
func (s *Store) DueWithin(ctx context.Context, now, until time.Time) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE due_date IS NOT NULL
			AND due_date >= ? AND due_date < ?
			AND status NOT IN ('done', 'cancelled')
		ORDER BY due_date ASC, rowid ASC;
	`, now.UTC(), until.UTC())
	if err != nil {
		return nil, fmt.Errorf("tasks due within: %w", err)
	}
	defer rows.Close()
	return collectTasks(rows)
}

// StatusCounts returns the number of tasks per status.
func (s *Store) StatusCounts(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("task status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[domain.TaskStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// CountActive counts tasks that are neither done nor cancelled.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks WHERE status NOT IN ('done', 'cancelled');
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active tasks: %w", err)
	}
	return n, nil
}

// CountBlocked counts blocked tasks.
func (s *Store) CountBlocked(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = 'blocked';`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count blocked tasks: %w", err)
	}
	return n, nil
}

// CountCompletedBetween counts tasks completed in [from, until) across all
// agents.
func (s *Store) CountCompletedBetween(ctx context.Context, from, until time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE status = 'done' AND completed_at >= ? AND completed_at < ?;
	`, from.UTC(), until.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed tasks: %w", err)
	}
	return n, nil
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t                                     domain.Task
		description, assignee, creator        sql.NullString
		parentID, tags                        sql.NullString
		status, priority                      string
		dueDate, completedAt                  sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &description, &assignee, &creator, &status, &priority,
		&dueDate, &parentID, &tags, &t.CreatedAt, &t.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	t.Description = strOrEmpty(description)
	t.AssigneeID = strOrEmpty(assignee)
	t.CreatorID = strOrEmpty(creator)
	t.Status = domain.TaskStatus(status)
	t.Priority = domain.Priority(priority)
	t.DueDate = timeOrNil(dueDate)
	t.ParentID = strOrEmpty(parentID)
	t.CompletedAt = timeOrNil(completedAt)
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &t, nil
}

func encodeTags(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

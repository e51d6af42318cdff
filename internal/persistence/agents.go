package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/basket/mission-control/internal/domain"
)

// SeedAgents inserts the roster if absent. Existing rows keep their status
// and last_seen; re-running with the same roster is a no-op.
func (s *Store) SeedAgents(ctx context.Context, roster []domain.Agent) error {
	for _, a := range roster {
		id := a.ID
		if id == "" {
			id = strings.ToLower(a.Name)
		}
		err := retryOnBusy(ctx, 3, func() error {
			_, err := s.db.ExecContext(ctx, `
				INSERT OR IGNORE INTO agents (id, name, session_key, role, status)
				VALUES (?, ?, ?, ?, 'active');
			`, id, a.Name, a.SessionKey, a.Role)
			return err
		})
		if err != nil {
			return fmt.Errorf("seed agent %s: %w", a.Name, err)
		}
	}
	return nil
}

// GetAgent returns the agent by ID, or nil if not found.
func (s *Store) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, session_key, role, status, last_seen, created_at
		FROM agents WHERE id = ?;
	`, id)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}

// AgentByName matches case-insensitively, so mention tokens like "@Shuri"
// resolve to the seeded "shuri" row.
func (s *Store) AgentByName(ctx context.Context, name string) (*domain.Agent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, session_key, role, status, last_seen, created_at
		FROM agents WHERE LOWER(name) = LOWER(?);
	`, name)
	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("agent by name: %w", err)
	}
	return a, nil
}

// ListAgents returns the full roster ordered by name.
func (s *Store) ListAgents(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, session_key, role, status, last_seen, created_at
		FROM agents ORDER BY name;
	`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []*domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

// TouchAgentSeen stamps last_seen and marks the agent active.
func (s *Store) TouchAgentSeen(ctx context.Context, id string, at time.Time) error {
	err := retryOnBusy(ctx, 3, func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE agents SET last_seen = ?, status = 'active' WHERE id = ?;
		`, at.UTC(), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("touch agent seen: %w", err)
	}
	return nil
}

// SetAgentStatus updates the presence state.
func (s *Store) SetAgentStatus(ctx context.Context, id string, status domain.AgentStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET status = ? WHERE id = ?;`, string(status), id)
	if err != nil {
		return fmt.Errorf("set agent status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set agent status rows: %w", err)
	}
	if n == 0 {
		return domain.NotFoundf("agent %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*domain.Agent, error) {
	var (
		a        domain.Agent
		status   string
		lastSeen sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Name, &a.SessionKey, &a.Role, &status, &lastSeen, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Status = domain.AgentStatus(status)
	a.LastSeen = timeOrNil(lastSeen)
	return &a, nil
}

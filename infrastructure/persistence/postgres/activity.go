package postgres

import (
	"context"
	"time"

	"dreamcatcher/domain/core/entities"
	pkgerrors "dreamcatcher/pkg/errors"
)

// --- Agent logs ---

func (s *Store) SaveAgentLog(ctx context.Context, log *entities.AgentLog) error {
	var completed *time.Time
	if !log.CompletedAt.IsZero() {
		completed = &log.CompletedAt
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_logs (id, agent_id, idea_id, action, status, input_data, output_data, error_message,
			duration_ms, started_at, completed_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			output_data = EXCLUDED.output_data,
			error_message = EXCLUDED.error_message,
			duration_ms = EXCLUDED.duration_ms,
			completed_at = EXCLUDED.completed_at`,
		log.ID, log.AgentID, log.IdeaID, log.Action, string(log.Status), log.Input, log.Output, log.Error,
		log.Duration.Milliseconds(), log.StartedAt, completed)
	return mapError("save agent log", "agent log", err)
}

func (s *Store) ListAgentLogs(ctx context.Context, agentID string, limit int) ([]*entities.AgentLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, agent_id, COALESCE(idea_id, ''), action, status, input_data, output_data,
			COALESCE(error_message, ''), duration_ms, started_at, completed_at
		 FROM agent_logs WHERE ($1 = '' OR agent_id = $1)
		 ORDER BY started_at DESC LIMIT $2`, agentID, limitOrAll(limit))
	if err != nil {
		return nil, mapError("list agent logs", "agent log", err)
	}
	defer rows.Close()

	var out []*entities.AgentLog
	for rows.Next() {
		var (
			l          entities.AgentLog
			status     string
			durationMS int64
			completed  *time.Time
		)
		if err := rows.Scan(&l.ID, &l.AgentID, &l.IdeaID, &l.Action, &status, &l.Input, &l.Output,
			&l.Error, &durationMS, &l.StartedAt, &completed); err != nil {
			return nil, mapError("list agent logs", "agent log", err)
		}
		l.Status = entities.AgentLogStatus(status)
		l.Duration = time.Duration(durationMS) * time.Millisecond
		if completed != nil {
			l.CompletedAt = *completed
		}
		out = append(out, &l)
	}
	return out, mapError("list agent logs", "agent log", rows.Err())
}

func (s *Store) DeleteAgentLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agent_logs WHERE started_at < $1`, before)
	if err != nil {
		return 0, mapError("delete agent logs", "agent log", err)
	}
	return tag.RowsAffected(), nil
}

// --- Settings ---

func (s *Store) GetSettings(ctx context.Context, userID string) (*entities.UserSettings, error) {
	us := &entities.UserSettings{UserID: userID}
	err := s.pool.QueryRow(ctx,
		`SELECT settings, updated_at FROM user_settings WHERE user_id = $1`, userID).
		Scan(&us.Values, &us.UpdatedAt)
	if err != nil {
		mapped := mapError("get settings", "settings", err)
		if !pkgerrors.IsNotFound(mapped) {
			return nil, mapped
		}
	}
	if us.Values == nil {
		us.Values = map[string]interface{}{}
	}
	return us, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings *entities.UserSettings) error {
	values := settings.Values
	if values == nil {
		values = map[string]interface{}{}
	}
	updated := settings.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, settings, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at`,
		settings.UserID, values, updated)
	return mapError("save settings", "settings", err)
}

func (s *Store) DeleteSettings(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_settings WHERE user_id = $1`, userID)
	return mapError("delete settings", "settings", err)
}

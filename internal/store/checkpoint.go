package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

// CheckpointStore persists whole conversation states as JSON, one row per
// thread. It satisfies agent.StateStore.
type CheckpointStore struct {
	db *DB
}

// NewCheckpointStore creates a checkpoint store using the given database.
func NewCheckpointStore(db *DB) *CheckpointStore {
	return &CheckpointStore{db: db}
}

// Load returns the saved state for threadID.
func (s *CheckpointStore) Load(ctx context.Context, threadID string) (domain.ConversationState, bool, error) {
	var raw string
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT state FROM conversations WHERE thread_id = ?`, threadID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ConversationState{}, false, nil
	}
	if err != nil {
		return domain.ConversationState{}, false, fmt.Errorf("loading thread %s: %w", threadID, err)
	}

	var state domain.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return domain.ConversationState{}, false, fmt.Errorf("decoding thread %s: %w", threadID, err)
	}
	return state, true, nil
}

// Save upserts state under state.ThreadID. created_at survives updates.
func (s *CheckpointStore) Save(ctx context.Context, state domain.ConversationState) error {
	if state.ThreadID == "" {
		return errors.New("saving checkpoint: empty thread id")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding thread %s: %w", state.ThreadID, err)
	}

	ts := time.Now().UTC().Format(time.DateTime)
	_, err = s.db.sql.ExecContext(ctx,
		`INSERT INTO conversations (thread_id, user_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(thread_id) DO UPDATE SET
		   user_id = excluded.user_id,
		   state = excluded.state,
		   updated_at = excluded.updated_at`,
		state.ThreadID, state.UserID, string(data), ts, ts)
	if err != nil {
		s.db.log.Error().Err(err).Str("thread", state.ThreadID).Msg("failed to save checkpoint")
		return fmt.Errorf("saving thread %s: %w", state.ThreadID, err)
	}
	return nil
}

// Delete removes a thread.
func (s *CheckpointStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.sql.ExecContext(ctx, `DELETE FROM conversations WHERE thread_id = ?`, threadID); err != nil {
		return fmt.Errorf("deleting thread %s: %w", threadID, err)
	}
	return nil
}

// List returns all thread ids, most recently updated first.
func (s *CheckpointStore) List(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, `SELECT thread_id FROM conversations ORDER BY updated_at DESC, thread_id`)
}

// ListForUser returns the thread ids belonging to userID, most recent first.
func (s *CheckpointStore) ListForUser(ctx context.Context, userID int64) ([]string, error) {
	return s.listIDs(ctx,
		`SELECT thread_id FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, thread_id`, userID)
}

func (s *CheckpointStore) listIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

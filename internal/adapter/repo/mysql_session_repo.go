package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	domain "github.com/maximzom/shoebot/internal/entity"
	"github.com/maximzom/shoebot/internal/usecase"
)

// MySQLSessionRepo persists dialog sessions. The payload column is
// JSON; decoding ignores keys this build doesn't know, so sessions
// written by an older or newer deploy still restore.
type MySQLSessionRepo struct{ db *sql.DB }

func NewMySQLSessionRepo(db *sql.DB) *MySQLSessionRepo { return &MySQLSessionRepo{db: db} }

func (r *MySQLSessionRepo) Load(ctx context.Context, userID string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT state,payload,updated_at FROM sessions WHERE user_id = ?`, userID)

	var (
		state   string
		payload string
		sess    = domain.NewSession(userID)
	)
	err := row.Scan(&state, &payload, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// First contact: a fresh idle session, not an error.
		return sess, nil
	}
	if err != nil {
		return nil, err
	}

	sess.State = domain.DialogState(state)
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &sess.Payload); err != nil {
			return nil, fmt.Errorf("decode session payload for %s: %w", userID, err)
		}
	}
	return sess, nil
}

func (r *MySQLSessionRepo) Save(ctx context.Context, sess *domain.Session) error {
	payload, err := json.Marshal(sess.Payload)
	if err != nil {
		return fmt.Errorf("encode session payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO sessions (user_id,state,payload,updated_at)
VALUES (?,?,?,NOW())
ON DUPLICATE KEY UPDATE state = VALUES(state), payload = VALUES(payload), updated_at = NOW()
`, sess.UserID, sess.State, string(payload))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

var _ usecase.SessionStore = (*MySQLSessionRepo)(nil)

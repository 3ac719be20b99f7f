package intake

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"clerking-assistant/internal/triage"
)

type postgresRepo struct {
	db *sql.DB
}

// NewRepository returns a postgres-backed Repository. Sessions are stored as
// one row each with the collected document and differentials in JSONB;
// messages live in an append-only table. Single-row statements keep updates
// serialized per session at the database.
func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, user_id, started_at, stage, active, collected_data, triage_level,
	                 hpc_summary, differentials, created_at, updated_at
	          FROM sessions WHERE id = $1`

	var (
		sess              Session
		collectedJSON     []byte
		differentialsJSON []byte
		triageLevel       sql.NullString
		hpcSummary        sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.StartedAt,
		&sess.Stage,
		&sess.Active,
		&collectedJSON,
		&triageLevel,
		&hpcSummary,
		&differentialsJSON,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, "load session")
	}

	if len(collectedJSON) > 0 {
		if err := json.Unmarshal(collectedJSON, &sess.Collected); err != nil {
			return nil, errors.Wrap(err, "unmarshal collected data")
		}
	}
	if len(differentialsJSON) > 0 {
		if err := json.Unmarshal(differentialsJSON, &sess.Differentials); err != nil {
			return nil, errors.Wrap(err, "unmarshal differentials")
		}
	}
	if triageLevel.Valid {
		sess.TriageLevel = triage.Level(triageLevel.String)
	}
	if hpcSummary.Valid {
		sess.HPCSummary = hpcSummary.String
	}
	return &sess, nil
}

func (r *postgresRepo) Save(ctx context.Context, sess *Session) error {
	collectedJSON, err := json.Marshal(sess.Collected)
	if err != nil {
		return errors.Wrap(err, "marshal collected data")
	}
	differentialsJSON, err := json.Marshal(sess.Differentials)
	if err != nil {
		return errors.Wrap(err, "marshal differentials")
	}

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	sess.UpdatedAt = time.Now()

	query := `
		INSERT INTO sessions (id, user_id, started_at, stage, active, collected_data,
		                      triage_level, hpc_summary, differentials, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			stage = $4,
			active = $5,
			collected_data = $6,
			triage_level = $7,
			hpc_summary = $8,
			differentials = $9,
			updated_at = $11
	`
	_, err = r.db.ExecContext(ctx, query,
		sess.ID, sess.UserID, sess.StartedAt, sess.Stage, sess.Active, collectedJSON,
		nullString(string(sess.TriageLevel)), nullString(sess.HPCSummary), differentialsJSON,
		sess.CreatedAt, sess.UpdatedAt)
	return errors.Wrap(err, "save session")
}

func (r *postgresRepo) AppendMessage(ctx context.Context, m *Message) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO messages (session_id, sender, text, is_triage_trigger)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		m.SessionID, m.Sender, m.Text, m.IsTriageTrigger,
	).Scan(&m.ID, &m.CreatedAt)
	return errors.Wrap(err, "append message")
}

func (r *postgresRepo) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, sender, text, is_triage_trigger, created_at
		 FROM messages WHERE session_id = $1
		 ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "list messages")
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sender, &m.Text, &m.IsTriageTrigger, &m.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *postgresRepo) DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET active = FALSE, updated_at = NOW()
		 WHERE user_id = $1 AND active = TRUE`, userID)
	return errors.Wrap(err, "deactivate sessions")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

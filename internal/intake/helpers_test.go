package intake

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clerking-assistant/internal/platform/logger"
)

// scriptedLLM returns its responses in order, repeating the last one once the
// script runs out. A non-nil err fails every call.
type scriptedLLM struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return hpcSentinel, nil
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func newTestEngine(llm *scriptedLLM) *Engine {
	return NewEngine(llm, logger.NewNop())
}

func newTestSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		StartedAt: now,
		Stage:     StageBiodata,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// fakeRepo keeps sessions and messages in memory behind the Repository
// interface. Sessions are stored by value so a change only survives an
// explicit Save, matching the real store.
type fakeRepo struct {
	sessions map[uuid.UUID]Session
	messages []Message
	nextID   int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: map[uuid.UUID]Session{}}
}

func (r *fakeRepo) seed(sess *Session) {
	r.sessions[sess.ID] = *sess
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (r *fakeRepo) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now()
	r.sessions[sess.ID] = *sess
	return nil
}

func (r *fakeRepo) AppendMessage(ctx context.Context, m *Message) error {
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now()
	r.messages = append(r.messages, *m)
	return nil
}

func (r *fakeRepo) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	var out []Message
	for _, m := range r.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error {
	for id, sess := range r.sessions {
		if sess.UserID == userID {
			sess.Active = false
			r.sessions[id] = sess
		}
	}
	return nil
}

type fakeReporter struct {
	sent []uuid.UUID
	err  error
}

func (f *fakeReporter) SendClerkingReport(ctx context.Context, sess Session) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sess.ID)
	return nil
}

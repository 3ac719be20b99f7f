package intake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"clerking-assistant/internal/platform/logger"
	"clerking-assistant/internal/triage"
)

var (
	// ErrSessionNotFound is returned when the session id resolves to nothing.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionActive rejects a summary request for a session that has not
	// finished the clerking yet.
	ErrSessionActive = errors.New("session is still active")
)

// Repository persists sessions and their message log. Implementations must
// be atomic at single-session granularity; the service performs plain
// read-modify-write cycles and relies on that.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	AppendMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)
	DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error
}

// Reporter delivers the finished clerking report to the supervising
// clinician. Delivery is best-effort and never blocks the patient flow.
type Reporter interface {
	SendClerkingReport(ctx context.Context, sess Session) error
}

// ChatResponse is the per-message reply surfaced to the API layer.
type ChatResponse struct {
	SessionID   uuid.UUID    `json:"session_id"`
	Message     string       `json:"message"`
	Stage       Stage        `json:"current_section"`
	TriageLevel triage.Level `json:"triage_level,omitempty"`
	Active      bool         `json:"session_active"`
}

type Service interface {
	CreateSession(ctx context.Context, userID uuid.UUID) (*ChatResponse, error)
	Advance(ctx context.Context, sessionID uuid.UUID, text string) (*ChatResponse, error)
	Summarize(ctx context.Context, sessionID uuid.UUID) (*SummaryResult, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, []Message, error)
}

type service struct {
	repo     Repository
	engine   *Engine
	reporter Reporter
	log      *logger.Logger
}

// NewService wires the conversation engine to persistence and reporting.
// reporter may be nil, in which case completed sessions are simply not
// forwarded anywhere.
func NewService(repo Repository, engine *Engine, reporter Reporter, log *logger.Logger) Service {
	return &service{repo: repo, engine: engine, reporter: reporter, log: log}
}

func (s *service) CreateSession(ctx context.Context, userID uuid.UUID) (*ChatResponse, error) {
	// A patient has at most one live clerking at a time.
	if err := s.repo.DeactivateUserSessions(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "deactivate previous sessions")
	}

	now := time.Now()
	sess := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		StartedAt: now,
		Stage:     StageBiodata,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "save new session")
	}
	if err := s.repo.AppendMessage(ctx, &Message{
		SessionID: sess.ID,
		Sender:    SenderAssistant,
		Text:      FirstMessage,
	}); err != nil {
		return nil, errors.Wrap(err, "store greeting")
	}

	s.log.Info("session created", "session_id", sess.ID, "user_id", userID)
	return &ChatResponse{
		SessionID: sess.ID,
		Message:   FirstMessage,
		Stage:     sess.Stage,
		Active:    true,
	}, nil
}

// Advance processes one inbound patient message as a single ordered
// transaction: classify, dispatch, persist. The classifier runs on every
// message regardless of stage and may only raise the session's triage level;
// reconciliation at summary time is the one step allowed to overwrite it.
func (s *service) Advance(ctx context.Context, sessionID uuid.UUID, text string) (*ChatResponse, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !sess.Active {
		// Inactive sessions are read-only: respond without logging the
		// message or touching state. A session deactivated mid-clerking
		// (replaced by a newer one) must not reach its collector, where it
		// would mutate state and spend model calls that are never saved.
		if sess.Stage == StageCompleted {
			res := s.engine.Dispatch(ctx, sess, text)
			return s.chatResponse(sess, res), nil
		}
		return s.chatResponse(sess, StepResult{
			NextQuestion: endedResponse,
			Stage:        sess.Stage,
			Active:       false,
		}), nil
	}

	level, keyword := triage.Classify(text)
	escalated := level.Severity() > sess.RuleBasedTriage().Severity()
	if escalated {
		sess.TriageLevel = level
		s.log.Info("triage escalated", "session_id", sess.ID, "level", level, "keyword", keyword)
	}

	if err := s.repo.AppendMessage(ctx, &Message{
		SessionID:       sess.ID,
		Sender:          SenderUser,
		Text:            text,
		IsTriageTrigger: escalated,
	}); err != nil {
		return nil, errors.Wrap(err, "store user message")
	}

	res := s.engine.Dispatch(ctx, sess, text)
	if res.Stage == "" {
		// Defensive terminal state. The dispatcher did not touch the
		// session, but a triage escalation above must still land on the
		// row so it agrees with the flagged message.
		if err := s.repo.Save(ctx, sess); err != nil {
			return nil, errors.Wrap(err, "save session")
		}
		return s.chatResponse(sess, res), nil
	}

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	if res.NextQuestion != "" {
		if err := s.repo.AppendMessage(ctx, &Message{
			SessionID: sess.ID,
			Sender:    SenderAssistant,
			Text:      res.NextQuestion,
		}); err != nil {
			return nil, errors.Wrap(err, "store assistant message")
		}
	}

	return s.chatResponse(sess, res), nil
}

// Summarize is valid only once the session is inactive. It is idempotent: a
// previously persisted non-fallback summary is returned without invoking the
// model again, and fallback results are returned but never persisted.
func (s *service) Summarize(ctx context.Context, sessionID uuid.UUID) (*SummaryResult, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Active {
		return nil, ErrSessionActive
	}

	if sess.HPCSummary != "" && sess.HPCSummary != summaryFallbackText && len(sess.Differentials) > 0 {
		return &SummaryResult{
			HPCSummary:    sess.HPCSummary,
			Differentials: sess.Differentials,
			TriageLevel:   sess.RuleBasedTriage(),
		}, nil
	}

	result := s.engine.Summarize(ctx, sess)
	if !result.IsFallback() {
		sess.HPCSummary = result.HPCSummary
		sess.Differentials = result.Differentials
		sess.TriageLevel = result.TriageLevel
		if err := s.repo.Save(ctx, sess); err != nil {
			return nil, errors.Wrap(err, "save summary")
		}
		if s.reporter != nil {
			if err := s.reporter.SendClerkingReport(ctx, *sess); err != nil {
				s.log.Error("clerking report delivery failed", "session_id", sess.ID, "error", err)
			}
		}
	}

	return &result, nil
}

func (s *service) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, []Message, error) {
	sess, err := s.repo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "list messages")
	}
	return sess, msgs, nil
}

func (s *service) chatResponse(sess *Session, res StepResult) *ChatResponse {
	return &ChatResponse{
		SessionID:   sess.ID,
		Message:     res.NextQuestion,
		Stage:       res.Stage,
		TriageLevel: sess.TriageLevel,
		Active:      res.Active,
	}
}

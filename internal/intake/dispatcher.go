package intake

import (
	"context"
	"strconv"
	"strings"

	"clerking-assistant/internal/agent"
	"clerking-assistant/internal/platform/logger"
)

// Engine runs the conversation state machine: it routes each incoming user
// message to the collector for the session's current stage and advances the
// stage when a section completes. It mutates the session in place; persisting
// the result is the caller's job.
type Engine struct {
	llm agent.Client
	log *logger.Logger
}

func NewEngine(llm agent.Client, log *logger.Logger) *Engine {
	return &Engine{llm: llm, log: log}
}

// Dispatch delegates to exactly one collector per call. A completed session
// gets a fixed response with no state mutation; an unrecognized stage yields
// a terminal error response with an empty stage, which should not happen in
// normal operation.
func (e *Engine) Dispatch(ctx context.Context, sess *Session, userMessage string) StepResult {
	switch sess.Stage {
	case StageBiodata:
		return biodataScript.step(sess, userMessage)
	case StagePresentingComplaint:
		return e.stepPresentingComplaint(ctx, sess, userMessage)
	case StageHPC:
		return e.stepHPC(ctx, sess, userMessage)
	case StagePastMedicalHistory:
		return pastMedicalHistoryScript.step(sess, userMessage)
	case StageDrugHistory:
		return drugHistoryScript.step(sess, userMessage)
	case StageSocialHistory:
		return socialHistoryScript.step(sess, userMessage)
	case StageCompleted:
		return StepResult{NextQuestion: completedResponse, Stage: StageCompleted, Active: false}
	default:
		e.log.Warn("dispatch on unknown stage", "session_id", sess.ID, "stage", sess.Stage)
		return StepResult{NextQuestion: unknownStageResponse, Stage: "", Active: false}
	}
}

// stepPresentingComplaint first collects how many symptoms the patient has
// (1 or 2), then that many free-text symptom names. Invalid counts re-prompt
// without touching state. Submitting the final symptom hands off directly to
// the HPC driver so the patient sees the first HPC question, not a
// placeholder.
func (e *Engine) stepPresentingComplaint(ctx context.Context, sess *Session, userMessage string) StepResult {
	c := &sess.Collected
	text := strings.TrimSpace(userMessage)

	if c.SymptomCount == 0 {
		count, err := strconv.Atoi(text)
		if err != nil {
			return StepResult{NextQuestion: symptomCountPrompt, Stage: StagePresentingComplaint, Active: true}
		}
		if count < 1 || count > 2 {
			return StepResult{NextQuestion: symptomCountInvalidPrompt, Stage: StagePresentingComplaint, Active: true}
		}
		c.SymptomCount = count
		c.PresentingComplaints = []string{}
		return StepResult{NextQuestion: firstSymptomPrompt, Stage: StagePresentingComplaint, Active: true}
	}

	c.PresentingComplaints = append(c.PresentingComplaints, text)
	if len(c.PresentingComplaints) < c.SymptomCount {
		return StepResult{NextQuestion: nextSymptomPrompt, Stage: StagePresentingComplaint, Active: true}
	}

	sess.Stage = StageHPC
	c.SymptomIndex = 0
	return e.stepHPC(ctx, sess, "")
}

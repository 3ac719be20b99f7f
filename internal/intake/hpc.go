package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// hpcSentinel is the completion token the model emits, alone, when it
	// has gathered enough for this symptom. It is never shown to the patient.
	hpcSentinel = "DONE"

	// maxAssistantTurns bounds the sub-dialog per symptom regardless of
	// whether the model ever emits the sentinel.
	maxAssistantTurns = 10
)

// stepHPC drives the per-symptom history-of-presenting-complaint sub-dialog.
// It loops internally: whenever a symptom closes (sentinel or turn cap) the
// cursor moves on and the next symptom's opening question is generated in the
// same call, so every return carries a question that genuinely needs patient
// input. When the cursor passes the last symptom the session advances to
// past medical history.
func (e *Engine) stepHPC(ctx context.Context, sess *Session, userMessage string) StepResult {
	c := &sess.Collected
	msg := strings.TrimSpace(userMessage)

	for {
		if c.SymptomIndex >= len(c.PresentingComplaints) {
			sess.Stage = StagePastMedicalHistory
			return StepResult{
				NextQuestion: pastMedicalHistoryScript.fields[0].prompt,
				Stage:        StagePastMedicalHistory,
				Active:       true,
			}
		}

		symptom := c.PresentingComplaints[c.SymptomIndex]
		if c.HPC == nil {
			c.HPC = map[string][]HPCEntry{}
		}
		exchanges := c.HPC[symptom]

		if msg != "" {
			exchanges = append(exchanges, HPCEntry{Role: "user", Text: msg})
		}

		userPrompt := msg
		if userPrompt == "" {
			userPrompt = "Begin the HPC for this symptom."
		}

		question, err := e.llm.Complete(ctx, buildHPCPrompt(symptom, c.Biodata, c.PresentingComplaints, exchanges, msg), userPrompt)
		if err != nil {
			e.log.Error("hpc question generation failed", "session_id", sess.ID, "symptom", symptom, "error", err)
			question = hpcFallbackQuestion
		}
		question = cleanModelOutput(question)

		exchanges = append(exchanges, HPCEntry{Role: "assistant", Text: question})
		c.HPC[symptom] = exchanges

		if strings.EqualFold(question, hpcSentinel) || assistantTurns(exchanges) >= maxAssistantTurns {
			c.SymptomIndex++
			msg = ""
			continue
		}

		return StepResult{NextQuestion: question, Stage: StageHPC, Active: true}
	}
}

func assistantTurns(exchanges []HPCEntry) int {
	n := 0
	for _, e := range exchanges {
		if e.Role == "assistant" {
			n++
		}
	}
	return n
}

// cleanModelOutput strips decoration some models prepend to their question.
func cleanModelOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 9 && strings.EqualFold(s[:9], "question:") {
		s = strings.TrimSpace(s[9:])
	}
	return s
}

func buildHPCPrompt(symptom string, biodata map[string]string, complaints []string, exchanges []HPCEntry, userMessage string) string {
	task := "Begin HPC for this symptom"
	if userMessage != "" {
		task = "Follow up on the patient's response"
	}
	return fmt.Sprintf(hpcSystemPromptTemplate,
		symptom,
		jsonContext(biodata),
		jsonContext(complaints),
		jsonContext(exchanges),
		task,
	)
}

// jsonContext renders collected data for prompt embedding. Marshal failures
// cannot happen for the plain map/slice types used here, but degrade to an
// empty object rather than aborting the turn.
func jsonContext(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clerking-assistant/internal/triage"
)

// SummaryResult is the final output of a completed session: a short
// narrative, up to three differential diagnoses, and the reconciled triage
// level.
type SummaryResult struct {
	HPCSummary    string         `json:"hpc_summary"`
	Differentials []Differential `json:"differentials"`
	TriageLevel   triage.Level   `json:"triage_level"`
}

// IsFallback reports whether the summary is the safe default produced when
// the model output was unusable. Fallback summaries are never persisted, so
// a later call retries generation.
func (r SummaryResult) IsFallback() bool {
	return r.HPCSummary == summaryFallbackText
}

// Summarize flattens every collected section into one prompt, asks the model
// for a structured summary, and reconciles the model's triage with the
// session's running rule-based level by keeping whichever is more severe.
// Model failure or malformed output degrades to safe defaults; no error is
// surfaced.
func (e *Engine) Summarize(ctx context.Context, sess *Session) SummaryResult {
	result := SummaryResult{
		HPCSummary:    summaryFallbackText,
		Differentials: []Differential{},
		TriageLevel:   triage.LevelRoutine,
	}

	raw, err := e.llm.Complete(ctx, buildSummaryPrompt(&sess.Collected), summaryUserPrompt)
	if err != nil {
		e.log.Error("summary generation failed", "session_id", sess.ID, "error", err)
	} else if parsed, ok := parseSummaryResponse(raw); ok {
		result = parsed
	} else {
		e.log.Warn("summary response unusable", "session_id", sess.ID, "response", raw)
	}

	result.TriageLevel = triage.MoreSevere(sess.RuleBasedTriage(), result.TriageLevel)
	return result
}

// parseSummaryResponse decodes the model's JSON defensively. A non-object
// response fails outright; within a decodable object, differentials missing
// either field are dropped and an unknown triage label is ignored in favor of
// Routine (reconciliation then restores the rule-based level).
func parseSummaryResponse(raw string) (SummaryResult, bool) {
	var payload struct {
		HPCSummary    string            `json:"hpc_summary"`
		Differentials []json.RawMessage `json:"differentials"`
		TriageLevel   string            `json:"triage_level"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return SummaryResult{}, false
	}

	out := SummaryResult{
		HPCSummary:    strings.TrimSpace(payload.HPCSummary),
		Differentials: []Differential{},
		TriageLevel:   triage.LevelRoutine,
	}
	if out.HPCSummary == "" {
		out.HPCSummary = summaryFallbackText
	}

	for _, entry := range payload.Differentials {
		if len(out.Differentials) == 3 {
			break
		}
		var d Differential
		if err := json.Unmarshal(entry, &d); err != nil {
			continue
		}
		if d.Diagnosis == "" || d.Confidence == "" {
			continue
		}
		out.Differentials = append(out.Differentials, d)
	}

	if lvl, ok := triage.ParseLevel(payload.TriageLevel); ok {
		out.TriageLevel = lvl
	}
	return out, true
}

func buildSummaryPrompt(c *CollectedData) string {
	var hpcText strings.Builder
	for _, symptom := range c.PresentingComplaints {
		exchanges, ok := c.HPC[symptom]
		if !ok {
			continue
		}
		fmt.Fprintf(&hpcText, "\nSymptom: %s\n", symptom)
		for _, entry := range exchanges {
			fmt.Fprintf(&hpcText, "%s: %s\n", entry.Role, entry.Text)
		}
	}

	return fmt.Sprintf(summarySystemPromptTemplate,
		jsonContext(c.Biodata),
		jsonContext(c.PresentingComplaints),
		hpcText.String(),
		jsonContext(c.PastMedicalHistory),
		jsonContext(c.DrugHistory),
		jsonContext(c.SocialHistory),
	)
}

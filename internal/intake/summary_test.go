package intake

import (
	"context"
	"errors"
	"testing"

	"clerking-assistant/internal/triage"
)

func completedSession() *Session {
	sess := newTestSession()
	sess.Stage = StageCompleted
	sess.Active = false
	sess.Collected = CollectedData{
		Biodata:              map[string]string{"name": "Jane Doe", "age": "34"},
		SymptomCount:         1,
		PresentingComplaints: []string{"cough"},
		SymptomIndex:         1,
		HPC: map[string][]HPCEntry{
			"cough": {
				{Role: "assistant", Text: "When did it start?"},
				{Role: "user", Text: "two days ago"},
			},
		},
		PastMedicalHistory: map[string]string{"chronic_conditions": "No"},
		DrugHistory:        map[string]string{"regular_medications": "No", "allergies": "No"},
		SocialHistory:      map[string]string{"alcohol": "No", "smoking": "No"},
	}
	return sess
}

func TestSummarizeParsesValidResponse(t *testing.T) {
	llm := &scriptedLLM{responses: []string{`{
		"hpc_summary": "34-year-old with a two-day cough.",
		"differentials": [
			{"diagnosis": "Viral URTI", "confidence": "High"},
			{"diagnosis": "Acute bronchitis", "confidence": "Medium"}
		],
		"triage_level": "Urgent"
	}`}}
	engine := newTestEngine(llm)

	result := engine.Summarize(context.Background(), completedSession())
	if result.HPCSummary != "34-year-old with a two-day cough." {
		t.Fatalf("summary = %q", result.HPCSummary)
	}
	if len(result.Differentials) != 2 || result.Differentials[0].Diagnosis != "Viral URTI" {
		t.Fatalf("differentials = %+v", result.Differentials)
	}
	if result.TriageLevel != triage.LevelUrgent {
		t.Fatalf("triage = %q, want Urgent", result.TriageLevel)
	}
	if result.IsFallback() {
		t.Fatal("valid summary flagged as fallback")
	}
}

func TestSummarizeNonJSONFallsBack(t *testing.T) {
	llm := &scriptedLLM{responses: []string{"I'm sorry, I can't produce JSON right now."}}
	engine := newTestEngine(llm)

	result := engine.Summarize(context.Background(), completedSession())
	if !result.IsFallback() {
		t.Fatalf("summary = %q, want fallback", result.HPCSummary)
	}
	if len(result.Differentials) != 0 {
		t.Fatalf("differentials = %+v, want empty", result.Differentials)
	}
	if result.TriageLevel != triage.LevelRoutine {
		t.Fatalf("triage = %q, want Routine", result.TriageLevel)
	}
}

func TestSummarizeLLMErrorFallsBack(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("rate limited")}
	engine := newTestEngine(llm)

	sess := completedSession()
	sess.TriageLevel = triage.LevelUrgent

	result := engine.Summarize(context.Background(), sess)
	if !result.IsFallback() {
		t.Fatalf("summary = %q, want fallback", result.HPCSummary)
	}
	// Reconciliation still applies: the rule-based level survives the failure.
	if result.TriageLevel != triage.LevelUrgent {
		t.Fatalf("triage = %q, want Urgent", result.TriageLevel)
	}
}

func TestSummarizeReconciliation(t *testing.T) {
	tests := []struct {
		name      string
		ruleBased triage.Level
		llmTriage string
		want      triage.Level
	}{
		{"rule-based urgent beats llm routine", triage.LevelUrgent, "Routine", triage.LevelUrgent},
		{"llm emergency beats rule-based routine", triage.LevelRoutine, "Emergency", triage.LevelEmergency},
		{"ties keep the rule-based value", triage.LevelUrgent, "Urgent", triage.LevelUrgent},
		{"invalid llm label falls back to rule-based", triage.LevelUrgent, "Critical", triage.LevelUrgent},
		{"missing llm label falls back to rule-based", triage.LevelEmergency, "", triage.LevelEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{responses: []string{
				`{"hpc_summary": "Summary.", "differentials": [{"diagnosis": "X", "confidence": "Low"}], "triage_level": "` + tt.llmTriage + `"}`,
			}}
			engine := newTestEngine(llm)
			sess := completedSession()
			sess.TriageLevel = tt.ruleBased

			result := engine.Summarize(context.Background(), sess)
			if result.TriageLevel != tt.want {
				t.Fatalf("reconciled triage = %q, want %q", result.TriageLevel, tt.want)
			}
		})
	}
}

func TestParseSummaryResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantOK    bool
		wantDiffs int
	}{
		{
			name:   "array response is rejected",
			raw:    `[{"hpc_summary": "x"}]`,
			wantOK: false,
		},
		{
			name:   "quoted string is rejected",
			raw:    `"just text"`,
			wantOK: false,
		},
		{
			name:      "malformed differential entries are dropped",
			raw:       `{"hpc_summary": "s", "differentials": [{"diagnosis": "A", "confidence": "High"}, {"diagnosis": "B"}, "oops", {"confidence": "Low"}], "triage_level": "Routine"}`,
			wantOK:    true,
			wantDiffs: 1,
		},
		{
			name:      "differentials are capped at three",
			raw:       `{"hpc_summary": "s", "differentials": [{"diagnosis": "A", "confidence": "High"}, {"diagnosis": "B", "confidence": "High"}, {"diagnosis": "C", "confidence": "Low"}, {"diagnosis": "D", "confidence": "Low"}], "triage_level": "Routine"}`,
			wantOK:    true,
			wantDiffs: 3,
		},
		{
			name:   "wrongly typed differentials field is rejected",
			raw:    `{"hpc_summary": "s", "differentials": "none", "triage_level": "Routine"}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := parseSummaryResponse(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && len(result.Differentials) != tt.wantDiffs {
				t.Fatalf("differentials = %+v, want %d entries", result.Differentials, tt.wantDiffs)
			}
		})
	}
}

func TestParseSummaryResponseEmptySummaryBecomesFallback(t *testing.T) {
	result, ok := parseSummaryResponse(`{"differentials": [], "triage_level": "Urgent"}`)
	if !ok {
		t.Fatal("expected decodable object")
	}
	if !result.IsFallback() {
		t.Fatalf("summary = %q, want fallback text", result.HPCSummary)
	}
	if result.TriageLevel != triage.LevelUrgent {
		t.Fatalf("triage = %q, want Urgent", result.TriageLevel)
	}
}

package intake

import (
	"time"

	"github.com/google/uuid"

	"clerking-assistant/internal/triage"
)

// Stage is the current phase of the intake conversation. Stages advance
// through a fixed total order and never regress.
type Stage string

const (
	StageBiodata             Stage = "biodata"
	StagePresentingComplaint Stage = "presenting_complaint"
	StageHPC                 Stage = "hpc"
	StagePastMedicalHistory  Stage = "past_medical_history"
	StageDrugHistory         Stage = "drug_history"
	StageSocialHistory       Stage = "social_history"
	StageCompleted           Stage = "completed"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is an immutable log entry owned by its session.
type Message struct {
	ID              int64     `json:"id"`
	SessionID       uuid.UUID `json:"session_id"`
	Sender          Sender    `json:"sender"`
	Text            string    `json:"text"`
	IsTriageTrigger bool      `json:"is_triage_trigger"`
	CreatedAt       time.Time `json:"created_at"`
}

// HPCEntry is one turn of a per-symptom sub-dialog. Role is "user" or
// "assistant"; entries alternate and are never rewritten.
type HPCEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Differential is a candidate diagnosis with the model's stated confidence.
type Differential struct {
	Diagnosis  string `json:"diagnosis"`
	Confidence string `json:"confidence"`
}

// CollectedData accumulates everything gathered over the conversation.
// Each fixed-field section carries an explicit answer cursor so progress is
// never inferred from map size. Fields are append-only: once an answer is
// stored it is not overwritten by a later stage.
type CollectedData struct {
	Biodata      map[string]string `json:"biodata,omitempty"`
	BiodataIndex int               `json:"biodata_index,omitempty"`

	SymptomCount         int      `json:"symptom_count,omitempty"`
	PresentingComplaints []string `json:"presenting_complaints,omitempty"`

	// SymptomIndex is the HPC cursor into PresentingComplaints.
	SymptomIndex int                   `json:"current_symptom_index,omitempty"`
	HPC          map[string][]HPCEntry `json:"hpc,omitempty"`

	PastMedicalHistory      map[string]string `json:"past_medical_history,omitempty"`
	PastMedicalHistoryIndex int               `json:"past_medical_history_index,omitempty"`

	DrugHistory      map[string]string `json:"drug_history,omitempty"`
	DrugHistoryIndex int               `json:"drug_history_index,omitempty"`

	SocialHistory      map[string]string `json:"social_history,omitempty"`
	SocialHistoryIndex int               `json:"social_history_index,omitempty"`
}

// Session is the aggregate root for one clerking conversation.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	StartedAt time.Time `json:"started_at"`

	Stage     Stage         `json:"current_section"`
	Active    bool          `json:"is_active"`
	Collected CollectedData `json:"collected_data"`

	// TriageLevel is empty until the real-time classifier first escalates
	// the session; it only increases in severity until reconciliation at
	// summary time, which may overwrite it exactly once.
	TriageLevel triage.Level `json:"triage_level,omitempty"`

	// Populated only once the session is completed.
	HPCSummary    string         `json:"hpc_summary,omitempty"`
	Differentials []Differential `json:"differentials,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RuleBasedTriage is the running classifier-derived level, Routine when the
// classifier has not escalated the session yet.
func (s *Session) RuleBasedTriage() triage.Level {
	if s.TriageLevel == "" {
		return triage.LevelRoutine
	}
	return s.TriageLevel
}

// StepResult is what a collector hands back to the caller after consuming
// one user message: the next question to show, the (possibly advanced)
// stage, and whether the session is still accepting messages. Stage is empty
// only for the defensive unknown-stage response.
type StepResult struct {
	NextQuestion string `json:"next_question"`
	Stage        Stage  `json:"current_section"`
	Active       bool   `json:"session_active"`
}

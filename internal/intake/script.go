package intake

import "strings"

// scriptField is one question in a fixed-field section.
type scriptField struct {
	key    string
	prompt string
}

// fieldScript walks an ordered question list for one section of the clerking.
// Answers land in the section's map at an explicit cursor; fields are asked
// in order, never skipped and never revisited. When the last field is
// answered the session advances to nextStage and transition is returned as
// the next question.
type fieldScript struct {
	stage      Stage
	fields     []scriptField
	answers    func(*CollectedData) map[string]string
	cursor     func(*CollectedData) *int
	nextStage  Stage
	transition string
}

func (fs fieldScript) step(sess *Session, userMessage string) StepResult {
	answers := fs.answers(&sess.Collected)
	cursor := fs.cursor(&sess.Collected)

	// Without a message there is nothing to store; re-issue the pending
	// question (the first one when the section is untouched).
	msg := strings.TrimSpace(userMessage)
	if msg == "" && *cursor < len(fs.fields) {
		return StepResult{NextQuestion: fs.fields[*cursor].prompt, Stage: fs.stage, Active: true}
	}

	if *cursor < len(fs.fields) {
		answers[fs.fields[*cursor].key] = msg
		*cursor++
	}

	if *cursor < len(fs.fields) {
		return StepResult{NextQuestion: fs.fields[*cursor].prompt, Stage: fs.stage, Active: true}
	}

	sess.Stage = fs.nextStage
	if fs.nextStage == StageCompleted {
		sess.Active = false
		return StepResult{NextQuestion: fs.transition, Stage: StageCompleted, Active: false}
	}
	return StepResult{NextQuestion: fs.transition, Stage: fs.nextStage, Active: true}
}

func ensureMap(m *map[string]string) map[string]string {
	if *m == nil {
		*m = map[string]string{}
	}
	return *m
}

var biodataScript = fieldScript{
	stage: StageBiodata,
	fields: []scriptField{
		{"name", "What is your full name?"},
		{"age", "How old are you?"},
		{"gender", "What is your gender?"},
		{"occupation", "What is your occupation?"},
	},
	answers:    func(c *CollectedData) map[string]string { return ensureMap(&c.Biodata) },
	cursor:     func(c *CollectedData) *int { return &c.BiodataIndex },
	nextStage:  StagePresentingComplaint,
	transition: "Thank you. " + symptomCountPrompt,
}

var pastMedicalHistoryScript = fieldScript{
	stage: StagePastMedicalHistory,
	fields: []scriptField{
		{"chronic_conditions",
			"Do you have any chronic medical conditions such as hypertension, diabetes, asthma, sickle cell disease, or HIV? Please reply with 'Yes – [list them]' or 'No'."},
		{"previous_similar_illness",
			"Have you ever had this same problem or been diagnosed with a similar condition before? Please reply with 'Yes – [explain briefly]' or 'No'."},
		{"recent_hospital_admission",
			"Have you been admitted to the hospital or had any surgery in the past year? Please reply with 'Yes – [state what and when]' or 'No'."},
	},
	answers:    func(c *CollectedData) map[string]string { return ensureMap(&c.PastMedicalHistory) },
	cursor:     func(c *CollectedData) *int { return &c.PastMedicalHistoryIndex },
	nextStage:  StageDrugHistory,
	transition: "Do you take any regular medications? Please reply with 'Yes – [list them]' or 'No'.",
}

var drugHistoryScript = fieldScript{
	stage: StageDrugHistory,
	fields: []scriptField{
		{"regular_medications",
			"Do you take any regular medications? Please reply with 'Yes – [list them]' or 'No'."},
		{"allergies",
			"Do you have any drug or food allergies? Please reply with 'Yes – [specify which and what reaction]' or 'No'."},
	},
	answers:    func(c *CollectedData) map[string]string { return ensureMap(&c.DrugHistory) },
	cursor:     func(c *CollectedData) *int { return &c.DrugHistoryIndex },
	nextStage:  StageSocialHistory,
	transition: "Do you drink alcohol? Please reply with 'Yes – [how much/how often]' or 'No'.",
}

var socialHistoryScript = fieldScript{
	stage: StageSocialHistory,
	fields: []scriptField{
		{"alcohol", "Do you drink alcohol? Please reply with 'Yes – [how much/how often]' or 'No'."},
		{"smoking", "Do you smoke? Please reply with 'Yes – [how much/how often]' or 'No'."},
	},
	answers:    func(c *CollectedData) map[string]string { return ensureMap(&c.SocialHistory) },
	cursor:     func(c *CollectedData) *int { return &c.SocialHistoryIndex },
	nextStage:  StageCompleted,
	transition: "Social history completed. You can now view the session summary.",
}

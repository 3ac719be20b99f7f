package intake

// prompts.go keeps the fixed conversation texts and LLM prompt templates in
// one place so the clinical wording can be tweaked without touching the
// state machine.

const (
	// FirstMessage greets the patient when a session is created and doubles
	// as the first biodata question.
	FirstMessage = "Hello, What's your full name please?"

	symptomCountPrompt        = "Please enter a number (1 or 2) for how many symptoms you have."
	symptomCountInvalidPrompt = "Please enter a valid number (1 or 2) for how many symptoms you have."
	firstSymptomPrompt        = "Please tell me your first symptom."
	nextSymptomPrompt         = "Please tell me your next symptom."

	completedResponse    = "The session is already completed. You can view the final summary."
	endedResponse        = "This session has ended. Please start a new one."
	unknownStageResponse = "Error: Unknown conversation section. Please start a new session."

	// hpcFallbackQuestion substitutes for the model's question when the LLM
	// call fails; the turn still counts so a broken model cannot stall the
	// sub-dialog.
	hpcFallbackQuestion = "Please tell me more about that symptom."

	summaryUserPrompt = "Generate the patient summary, differentials, and triage in JSON format."

	// summaryFallbackText is the safe default narrative when the model
	// returns something unusable. Persisting it is always skipped.
	summaryFallbackText = "Unable to generate summary."
)

const hpcSystemPromptTemplate = `
You are a medical assistant conducting a History of Presenting Complaint (HPC) for: %s.

**CRITICAL INSTRUCTIONS:**
- Ask ONE focused, clinical question at a time that can be answered in 1-2 words or a short phrase
- Focus on essential diagnostic information: onset, duration, severity, character, location, radiation, aggravating/relieving factors, associated symptoms
- Be efficient - prioritize the most clinically important questions first
- When you have sufficient information for a basic HPC, respond with just: "DONE"!! Remember just the Output "DONE"!!
- Be precise in your questioning, do not repeat what user has already said!!
- Maximum 8-10 questions per symptom (you don't know the limit, but be concise)
- Do NOT ask open-ended questions like "tell me more" or "describe"
- Do NOT provide diagnoses or medical advice

**Patient Context:**
- Biodata: %s
- All presenting complaints: %s
- Conversation history for this symptom: %s

**Current task:** %s
`

const summarySystemPromptTemplate = `
You are a medical AI assistant creating a structured clinical summary. Output ONLY valid JSON.

**CRITICAL RULES:**
- Base conclusions ONLY on provided history
- Triage: "Routine", "Urgent", or "Emergency"
- Confidence: "High", "Medium", or "Low"
- Maximum 3 differentials

**PATIENT DATA:**
Biodata: %s
Presenting: %s
HPC: %s
PMH: %s
Meds/Allergies: %s
Social: %s

**JSON FORMAT:**
{
    "hpc_summary": "2-3 sentence summary",
    "differentials": [{"diagnosis": "...", "confidence": "..."}],
    "triage_level": "..."
}
`

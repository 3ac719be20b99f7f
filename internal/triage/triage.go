package triage

import (
	"regexp"
	"strings"
)

// Level is the urgency classification of a session or message.
type Level string

const (
	LevelRoutine   Level = "Routine"
	LevelUrgent    Level = "Urgent"
	LevelEmergency Level = "Emergency"
)

// Severity returns the rank of the level in the order
// Routine < Urgent < Emergency. Unknown levels rank below Routine.
func (l Level) Severity() int {
	switch l {
	case LevelRoutine:
		return 1
	case LevelUrgent:
		return 2
	case LevelEmergency:
		return 3
	default:
		return 0
	}
}

// ParseLevel maps a free-text label onto a Level. It reports false for
// anything outside the three known values.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.TrimSpace(s)) {
	case LevelRoutine:
		return LevelRoutine, true
	case LevelUrgent:
		return LevelUrgent, true
	case LevelEmergency:
		return LevelEmergency, true
	default:
		return "", false
	}
}

// MoreSevere returns whichever level outranks the other. Ties keep a.
func MoreSevere(a, b Level) Level {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

var emergencyKeywords = []string{
	"chest pain", "shortness of breath", "unconscious", "bleeding heavily",
	"severe headache", "confusion", "no pulse", "not breathing",
	"seizure", "stroke", "can't breathe", "trauma", "severe burn",
}

var urgentKeywords = []string{
	"fever", "moderate pain", "vomiting", "persistent cough",
	"dehydration", "abdominal pain", "infection", "painful urination",
}

type keywordPattern struct {
	keyword string
	re      *regexp.Regexp
}

var (
	emergencyPatterns = compileKeywords(emergencyKeywords)
	urgentPatterns    = compileKeywords(urgentKeywords)
)

func compileKeywords(keywords []string) []keywordPattern {
	patterns := make([]keywordPattern, 0, len(keywords))
	for _, k := range keywords {
		patterns = append(patterns, keywordPattern{
			keyword: k,
			re:      regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`),
		})
	}
	return patterns
}

// Classify scores a single patient message. Emergency keywords are checked
// before urgent ones and the first whole-phrase match wins; a message with no
// match is Routine. The matched keyword is returned for audit purposes and is
// empty for Routine.
func Classify(message string) (Level, string) {
	lower := strings.ToLower(message)
	for _, p := range emergencyPatterns {
		if p.re.MatchString(lower) {
			return LevelEmergency, p.keyword
		}
	}
	for _, p := range urgentPatterns {
		if p.re.MatchString(lower) {
			return LevelUrgent, p.keyword
		}
	}
	return LevelRoutine, ""
}

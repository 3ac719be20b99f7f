package triage

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantLevel   Level
		wantKeyword string
	}{
		{
			name:        "chest pain is an emergency",
			message:     "I woke up with chest pain this morning",
			wantLevel:   LevelEmergency,
			wantKeyword: "chest pain",
		},
		{
			name:        "matching is case-insensitive",
			message:     "CHEST PAIN and sweating",
			wantLevel:   LevelEmergency,
			wantKeyword: "chest pain",
		},
		{
			name:        "fever alone is urgent",
			message:     "I have had a fever for two days",
			wantLevel:   LevelUrgent,
			wantKeyword: "fever",
		},
		{
			name:        "emergency wins over urgent in the same message",
			message:     "fever and shortness of breath",
			wantLevel:   LevelEmergency,
			wantKeyword: "shortness of breath",
		},
		{
			name:      "substring inside a longer word does not fire",
			message:   "I feel feverish but otherwise fine",
			wantLevel: LevelRoutine,
		},
		{
			name:        "phrase with apostrophe matches",
			message:     "help, I can't breathe properly",
			wantLevel:   LevelEmergency,
			wantKeyword: "can't breathe",
		},
		{
			name:      "no keywords yields routine",
			message:   "My knee has been a bit stiff lately",
			wantLevel: LevelRoutine,
		},
		{
			name:      "empty message is routine",
			message:   "",
			wantLevel: LevelRoutine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, keyword := Classify(tt.message)
			if level != tt.wantLevel {
				t.Fatalf("Classify(%q) level = %q, want %q", tt.message, level, tt.wantLevel)
			}
			if keyword != tt.wantKeyword {
				t.Fatalf("Classify(%q) keyword = %q, want %q", tt.message, keyword, tt.wantKeyword)
			}
		})
	}
}

func TestMoreSevere(t *testing.T) {
	tests := []struct {
		a, b, want Level
	}{
		{LevelRoutine, LevelUrgent, LevelUrgent},
		{LevelUrgent, LevelRoutine, LevelUrgent},
		{LevelRoutine, LevelEmergency, LevelEmergency},
		{LevelEmergency, LevelUrgent, LevelEmergency},
		{LevelUrgent, LevelUrgent, LevelUrgent},
		// Unknown labels never outrank a known level.
		{LevelRoutine, Level("Critical"), LevelRoutine},
	}
	for _, tt := range tests {
		if got := MoreSevere(tt.a, tt.b); got != tt.want {
			t.Fatalf("MoreSevere(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, ok := ParseLevel("Urgent"); !ok || lvl != LevelUrgent {
		t.Fatalf("ParseLevel(Urgent) = %q, %v", lvl, ok)
	}
	if lvl, ok := ParseLevel(" Emergency "); !ok || lvl != LevelEmergency {
		t.Fatalf("ParseLevel with whitespace = %q, %v", lvl, ok)
	}
	for _, bad := range []string{"", "critical", "URGENT", "Immediate"} {
		if _, ok := ParseLevel(bad); ok {
			t.Fatalf("ParseLevel(%q) unexpectedly ok", bad)
		}
	}
}

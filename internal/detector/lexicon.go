package detector

import "strings"

// Phrase groups used by the escalation engine and the event-log scanner.
// Kept alongside the tier policy so all detection vocabulary lives in one
// place.
var (
	suicidalIdeationPhrases = []string{
		"kill myself", "suicide", "end my life", "want to die",
		"better off dead", "no reason to live", "not want to be alive",
	}
	immediacyPhrases = []string{
		"tonight", "right now", "today", "going to do it",
		"have a plan", "this is goodbye",
	}
	selfHarmPhrases = []string{
		"hurt myself", "cut myself", "self-harm", "self harm",
		"burning myself", "hitting myself",
	}
	severeDistressPhrases = []string{
		"can't take it", "can't go on", "falling apart",
		"unbearable", "breaking down", "out of control",
	}
	hopelessnessPhrases = []string{
		"hopeless", "no point", "nothing matters", "no way out",
		"never get better", "worthless",
	}
	negativeLanguagePhrases = []string{
		"hate", "awful", "terrible", "miserable", "can't stand",
		"worst", "horrible", "exhausted",
	}
	isolationPhrases = []string{
		"alone", "lonely", "nobody cares", "no one understands",
		"by myself", "no friends", "isolated",
	}
	helpSeekingPhrases = []string{
		"need help", "want help", "please help", "talk to someone",
		"therapist", "counselor", "reach out",
	}
)

func containsAny(text string, phrases []string) bool {
	lowered := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

func countMatches(text string, phrases []string) int {
	lowered := strings.ToLower(text)
	count := 0
	for _, p := range phrases {
		count += strings.Count(lowered, p)
	}
	return count
}

// HasSuicidalIdeation reports suicidal-ideation language.
func HasSuicidalIdeation(text string) bool { return containsAny(text, suicidalIdeationPhrases) }

// HasImmediacy reports immediacy language ("tonight", "right now").
func HasImmediacy(text string) bool { return containsAny(text, immediacyPhrases) }

// HasSelfHarm reports self-harm language.
func HasSelfHarm(text string) bool { return containsAny(text, selfHarmPhrases) }

// HasSevereDistress reports severe-distress language.
func HasSevereDistress(text string) bool { return containsAny(text, severeDistressPhrases) }

// HasHopelessness reports hopelessness language.
func HasHopelessness(text string) bool { return containsAny(text, hopelessnessPhrases) }

// HasHelpSeeking reports help-seeking language.
func HasHelpSeeking(text string) bool { return containsAny(text, helpSeekingPhrases) }

// CountNegativeLanguage counts escalating-negative phrase occurrences.
func CountNegativeLanguage(text string) int { return countMatches(text, negativeLanguagePhrases) }

// CountIsolationLanguage counts isolation phrase occurrences.
func CountIsolationLanguage(text string) int { return countMatches(text, isolationPhrases) }

package detector

import (
	"fmt"
	"strings"

	"github.com/xaenox/haven-bot/pkg/config"
)

// Tier is the lexical match level. Tiers are disjoint and ordered; a
// critical match short-circuits the lower tiers.
type Tier string

const (
	TierNone     Tier = "none"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// Result is the outcome of one lexical scan.
type Result struct {
	IsCrisis   bool
	Level      Tier
	Indicators []string
	Resources  []string
}

// Detector matches configured phrase tiers as case-insensitive substrings.
// Matching is deliberately broad: false negatives cost far more than false
// positives here, so recall wins over precision.
type Detector struct {
	version  string
	critical []string
	high     []string
	medium   []string
}

func New(cfg config.DetectorConfig) *Detector {
	return &Detector{
		version:  cfg.Version,
		critical: lowerAll(cfg.Critical),
		high:     lowerAll(cfg.High),
		medium:   lowerAll(cfg.Medium),
	}
}

// Version identifies the keyword policy this detector was built from.
func (d *Detector) Version() string {
	return d.version
}

// Detect scans text against the three tiers. The critical tier is checked
// first and short-circuits the others; all critical matches are still
// recorded as indicators. Resources are attached only for crisis-level
// results (critical or high).
func (d *Detector) Detect(text string) Result {
	lowered := strings.ToLower(text)

	result := Result{Level: TierNone, Indicators: []string{}, Resources: []string{}}

	if matches := matchAll(lowered, d.critical); len(matches) > 0 {
		result.Level = TierCritical
		result.Indicators = indicatorsFor("critical", matches)
	} else if matches := matchAll(lowered, d.high); len(matches) > 0 {
		result.Level = TierHigh
		result.Indicators = indicatorsFor("high", matches)
	} else if matches := matchAll(lowered, d.medium); len(matches) > 0 {
		result.Level = TierMedium
		result.Indicators = indicatorsFor("medium", matches)
	}

	result.IsCrisis = result.Level == TierCritical || result.Level == TierHigh
	if result.IsCrisis {
		result.Resources = EmergencyResources()
	}
	return result
}

func matchAll(lowered string, phrases []string) []string {
	var matches []string
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			matches = append(matches, phrase)
		}
	}
	return matches
}

func indicatorsFor(tier string, matches []string) []string {
	indicators := make([]string, 0, len(matches))
	for _, m := range matches {
		indicators = append(indicators, fmt.Sprintf("%s phrase matched: %q", tier, m))
	}
	return indicators
}

func lowerAll(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, strings.ToLower(p))
	}
	return out
}

// EmergencyResources returns the static 24/7 crisis resource list attached
// to every crisis-level response.
func EmergencyResources() []string {
	return []string{
		"988 Suicide & Crisis Lifeline (call or text 988, 24/7)",
		"Crisis Text Line: text HOME to 741741 (24/7)",
		"International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/",
		"If you are in immediate danger, call your local emergency number",
	}
}

package tracker

import (
	"fmt"

	"github.com/xaenox/haven-bot/internal/models"
)

// Prompt rule table keyed by dominant emotion. Deterministic on purpose:
// the same tone and themes always produce the same prompts.
var promptsByEmotion = map[models.Emotion][]string{
	models.EmotionJoy: {
		"What made today feel good?",
		"Is there something you'd like to celebrate or hold on to?",
	},
	models.EmotionSadness: {
		"Would you like to talk about what's weighing on you?",
		"What's one small thing that has helped you through hard days before?",
	},
	models.EmotionAnger: {
		"What happened that felt unfair or frustrating?",
		"Would it help to walk through what triggered this feeling?",
	},
	models.EmotionFear: {
		"What feels most uncertain right now?",
		"Is there one worry we could break into smaller pieces together?",
	},
	models.EmotionSurprise: {
		"That sounds unexpected - how are you processing it?",
	},
	models.EmotionDisgust: {
		"What about the situation felt wrong to you?",
	},
	models.EmotionNeutral: {
		"How has your day been so far?",
		"Is there anything on your mind you'd like to explore?",
	},
}

// buildPrompts regenerates up to PromptCap personalized prompts from the
// dominant emotion and themes that recur across the rolling window.
func buildPrompts(tone models.Emotion, recent []models.MessageSummary) []string {
	prompts := make([]string, 0, models.PromptCap)
	seen := make(map[string]struct{})

	add := func(p string) {
		if len(prompts) >= models.PromptCap {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		prompts = append(prompts, p)
	}

	for _, p := range promptsByEmotion[tone] {
		add(p)
	}

	for _, theme := range recurringThemes(recent) {
		add(fmt.Sprintf("You've mentioned %q a few times - would you like to talk more about it?", theme))
	}

	for _, p := range promptsByEmotion[models.EmotionNeutral] {
		add(p)
	}

	return prompts
}

// recurringThemes returns themes appearing in at least two tracked messages,
// in first-seen order.
func recurringThemes(recent []models.MessageSummary) []string {
	counts := make(map[string]int)
	var order []string
	for _, msg := range recent {
		for _, theme := range msg.KeyThemes {
			if counts[theme] == 0 {
				order = append(order, theme)
			}
			counts[theme]++
		}
	}

	var recurring []string
	for _, theme := range order {
		if counts[theme] >= 2 {
			recurring = append(recurring, theme)
		}
	}
	return recurring
}

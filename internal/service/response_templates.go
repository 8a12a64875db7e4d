package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Harshitk-cp/kindred/internal/domain"
)

const maxSynthesizedVariants = 8

func timeOfDay(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 22:
		return "evening"
	default:
		return "night"
	}
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func withPeriod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}

// WelcomeTemplates is the primary pool of opening lines for a persona.
func WelcomeTemplates(traits domain.PersonaTraits) []string {
	name := traits.Name
	if name == "" {
		name = "me"
	}
	greeting := traits.Greeting
	if greeting == "" {
		greeting = "Hi there!"
	}
	return []string{
		withPeriod(greeting),
		"There you are! I've been looking forward to talking with you.",
		fmt.Sprintf("It's %s. How have you been?", name),
		"Hey you. What's been on your mind lately?",
		"I'm so happy you're here. Tell me everything.",
	}
}

// FallbackTemplates is the pool used when a completion cannot be produced.
func FallbackTemplates(traits domain.PersonaTraits) []string {
	lines := []string{
		"I'm right here with you. Tell me a little more?",
		"Sorry, I lost my train of thought for a second. Say that again?",
		"Hmm, give me a moment with that one. What else is on your mind?",
	}
	if traits.Catchphrase != "" {
		lines = append(lines, withPeriod(traits.Catchphrase)+" Now, where were we?")
	}
	return lines
}

// SynthesizeVariants builds up to eight parameterized lines from persona
// traits and the current time.
func SynthesizeVariants(traits domain.PersonaTraits, now time.Time) []string {
	tod := timeOfDay(now)
	var out []string

	if traits.Greeting != "" {
		out = append(out, fmt.Sprintf("Good %s! %s", tod, withPeriod(traits.Greeting)))
	}
	if traits.Catchphrase != "" {
		out = append(out, fmt.Sprintf("%s How's your %s going?", withPeriod(traits.Catchphrase), tod))
	}
	for i, topic := range traits.FavoriteTopics {
		if i == 2 {
			break
		}
		if i == 0 {
			out = append(out, fmt.Sprintf("I was just thinking about %s. How are you doing this %s?", topic, tod))
		} else {
			out = append(out, fmt.Sprintf("Have you had a chance to enjoy any %s lately?", topic))
		}
	}
	if isWeekend(now) {
		out = append(out, "Happy weekend! Are you doing anything nice for yourself?")
	} else {
		out = append(out, "How's the week treating you so far?")
	}
	if trait := traits.PrimaryTrait(); trait != "" {
		out = append(out, fmt.Sprintf("You know me, always %s. So tell me, what's new?", trait))
	}
	if traits.Name != "" {
		out = append(out, fmt.Sprintf("It's %s. I'm so glad you stopped by this %s.", traits.Name, tod))
	}
	out = append(out, fmt.Sprintf("What a nice %s to hear from you.", tod))

	out = dedupeStrings(out)
	if len(out) > maxSynthesizedVariants {
		out = out[:maxSynthesizedVariants]
	}
	return out
}

// EmergencyTemplates is a small generic pool, lightly flavored with the
// persona's name.
func EmergencyTemplates(traits domain.PersonaTraits) []string {
	signoff := ""
	if traits.Name != "" {
		signoff = " - " + traits.Name
	}
	return []string{
		"It's always good to hear from you" + signoff + ".",
		"Tell me something about your day" + signoff + ".",
		"I'm all ears, love. What's on your heart?",
	}
}

// terminalLine embeds a time fragment so the line differs from anything
// emitted earlier in the window.
func terminalLine(traits domain.PersonaTraits, now time.Time, attempt int) string {
	fragment := now.Format("3:04:05 PM")
	if attempt > 0 {
		fragment = fmt.Sprintf("%s (%d)", now.Format("3:04:05.000 PM"), attempt)
	}
	if traits.Name != "" {
		return fmt.Sprintf("%s is still right here with you as of %s.", traits.Name, fragment)
	}
	return fmt.Sprintf("Still right here with you as of %s.", fragment)
}

package directive

import "strings"

// DefaultSchedulingPhrases open the date/time panel when they appear in a
// plain-text reply. The list grows as the workflow's wording changes; extend it
// through ScheduleDetector.Phrases rather than by adding branches.
var DefaultSchedulingPhrases = []string{
	"when would you like to schedule",
	"when would you like to book",
	"what date and time",
	"which date and time",
	"preferred date and time",
	"please provide a date",
	"please provide the date",
	"provide your preferred date",
	"date, time, and your timezone",
	"date, time and timezone",
	"what day and time",
	"when would you like the appointment",
}

// schedulingIntentTokens must accompany date/time tokens in a text_only reply.
var schedulingIntentTokens = []string{"provide", "when would you like", "when you'd like", "schedule", "booking"}

// ScheduleDetector decides whether a reply asks for a date and time.
type ScheduleDetector struct {
	Phrases []string
}

// NewScheduleDetector returns a detector using the default phrases plus extra.
func NewScheduleDetector(extra ...string) ScheduleDetector {
	phrases := make([]string, 0, len(DefaultSchedulingPhrases)+len(extra))
	phrases = append(phrases, DefaultSchedulingPhrases...)
	for _, p := range extra {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return ScheduleDetector{Phrases: phrases}
}

// FromPayload applies the structured rule. Only text_only replies can open
// the panel; any list or confirmation payload never does.
func (d ScheduleDetector) FromPayload(p *Payload) bool {
	if p == nil || p.Type != TypeTextOnly {
		return false
	}
	combined := strings.ToLower(p.Intro + " " + p.Footer)
	if !hasDateAndTimeTokens(combined) {
		return false
	}
	return containsAny(combined, schedulingIntentTokens)
}

// FromText applies the plain-text rule.
func (d ScheduleDetector) FromText(text string) bool {
	lower := strings.ToLower(text)
	if containsAny(lower, d.Phrases) {
		return true
	}
	return hasDateAndTimeTokens(lower) && strings.Contains(lower, "provide")
}

func hasDateAndTimeTokens(lower string) bool {
	hasDate := strings.Contains(lower, "date") || strings.Contains(lower, "when")
	hasTime := strings.Contains(lower, "time") || strings.Contains(lower, "schedule")
	return hasDate && hasTime
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

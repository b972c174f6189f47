package chat

import "strings"

// personalizeTrigger is the phrase that switches on the personalization
// preamble. Matching is a case-insensitive substring test.
const personalizeTrigger = "next event"

// Personalize reports whether the answer should be personalized: the caller
// supplied auxiliary context and the question mentions the trigger phrase.
// Kept as a standalone predicate so the trigger is testable apart from
// prompt assembly.
func Personalize(aux []string, question string) bool {
	if len(aux) == 0 {
		return false
	}
	return strings.Contains(strings.ToLower(question), personalizeTrigger)
}

// BuildPreamble renders the auxiliary context as a prompt preamble.
func BuildPreamble(aux []string) string {
	return "The user's registered sessions are: " + strings.Join(aux, ", ") + "."
}

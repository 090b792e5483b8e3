package telemetry

// Event names
const (
	EventPromptRendered     = "prompt_rendered"
	EventPromptSynthesized  = "prompt_synthesized"
	EventSuggestionsDerived = "suggestions_derived"
	EventSuggestionsApplied = "suggestions_applied"
	EventServerStarted      = "server_started"
)

// PromptRendered records a phase template render.
func PromptRendered(c Client, phase string) {
	c.Track(EventPromptRendered, Properties{"phase": phase})
}

// PromptSynthesized records a synthesizer call and whether it fell back.
func PromptSynthesized(c Client, phase string, fallback bool) {
	c.Track(EventPromptSynthesized, Properties{"phase": phase, "fallback": fallback})
}

// SuggestionsDerived records how many suggestions a derive produced.
func SuggestionsDerived(c Client, phase string, count int) {
	c.Track(EventSuggestionsDerived, Properties{"phase": phase, "count": count})
}

// SuggestionsApplied records how many paths an apply wrote.
func SuggestionsApplied(c Client, phase string, projectPaths, featurePaths int) {
	c.Track(EventSuggestionsApplied, Properties{
		"phase":         phase,
		"project_paths": projectPaths,
		"feature_paths": featurePaths,
	})
}

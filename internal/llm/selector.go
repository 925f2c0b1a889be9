package llm

import "strings"

// Rule maps a set of trigger phrases to a canned paragraph.
type Rule struct {
	Keywords []string
	Response string
}

// Rules are evaluated in order; the first rule with any keyword contained in
// the input wins. Matching is case-sensitive.
var Rules = []Rule{
	{Keywords: []string{"React component", "form validation"}, Response: formValidationResponse},
	{Keywords: []string{"state management", "context API"}, Response: stateManagementResponse},
	{Keywords: []string{"optimize", "recursive"}, Response: recursionResponse},
	{Keywords: []string{"authentication", "Next.js"}, Response: authenticationResponse},
	{Keywords: []string{"useMemo", "useCallback"}, Response: memoHooksResponse},
	{Keywords: []string{"server-side rendering", "SSR"}, Response: ssrResponse},
	{Keywords: []string{"API requests", "fetching data"}, Response: dataFetchingResponse},
}

func (r Rule) Matches(text string) bool {
	for _, k := range r.Keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Select returns the canned paragraph for text.
func Select(text string) string {
	for _, r := range Rules {
		if r.Matches(text) {
			return r.Response
		}
	}
	return FallbackResponse
}

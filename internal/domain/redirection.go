package domain

import "strings"

// RedirectionMessage is the canonical fallback response issued when the
// chatbot declines to answer. It is reserved for the semantic "I don't know"
// and must never be reused to mask a transport failure.
const RedirectionMessage = "I don't have that information in my onboarding materials. Please reach out to your HR representative for help with this question."

// redirectionMarker is the substring whose presence classifies a reply as a
// redirection. Control flow couples to this string; keep every check behind
// IsRedirectionText so the sentinel can become a structured flag later
// without touching call sites.
const redirectionMarker = "I don't have that information"

// IsRedirectionText reports whether text is (or embeds) the canonical
// redirection response.
func IsRedirectionText(text string) bool {
	return strings.Contains(text, redirectionMarker)
}

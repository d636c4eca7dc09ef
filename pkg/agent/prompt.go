package agent

import "strings"

// wrapUserInput delimits caller-controlled text so a prompt's instruction
// portion is never adjacent to unescaped user content. This is a
// best-effort mitigation, not a guarantee: a sufficiently adversarial
// input can still attempt to break out of the delimiter.
func wrapUserInput(value string) string {
	var b strings.Builder
	b.WriteString("<user_input>\n")
	b.WriteString(value)
	b.WriteString("\n</user_input>")
	return b.String()
}

// wrapUserData is wrapUserInput's counterpart for bulk reference material
// (scraped documents, feedback records) rather than a single query string.
func wrapUserData(value string) string {
	var b strings.Builder
	b.WriteString("<user_data>\n")
	b.WriteString(value)
	b.WriteString("\n</user_data>")
	return b.String()
}

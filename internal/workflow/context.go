package workflow

import "strings"

// kbContextLabel heads the knowledge-base block of the assembled context.
const kbContextLabel = "Knowledge Base Results:"

// AssembleContext merges the knowledge-base and web-search context strings
// into the single context injected into the generation prompt.
//
// Ordering is a contract: the knowledge-base block always precedes the
// web-search block. Generation prompts are order-sensitive, so callers must
// not reorder. Returns "" when both sources are absent.
func AssembleContext(kbContext, webContext string) string {
	var b strings.Builder
	if kbContext != "" {
		b.WriteString(kbContextLabel)
		b.WriteString("\n")
		b.WriteString(kbContext)
		b.WriteString("\n\n")
	}
	if webContext != "" {
		b.WriteString(webContext)
		b.WriteString("\n\n")
	}
	return b.String()
}

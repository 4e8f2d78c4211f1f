package report

import (
	"fmt"
	"net/url"
	"strings"
)

// ShareText renders a report as a chat-friendly message.
func ShareText(title string, r Report) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "EVENT"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*MEETING MEMORY: %s*\n\n", strings.ToUpper(title))
	fmt.Fprintf(&b, "*ESSENCE:*\n%s\n\n", r.Summary)
	b.WriteString("*NEXT STEPS:*")
	for i, item := range r.ActionItems {
		fmt.Fprintf(&b, "\n%d. %s", i+1, strings.ToUpper(item))
	}
	return b.String()
}

// ShareLink wraps text in a WhatsApp share URL.
func ShareLink(text string) string {
	return "https://wa.me/?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

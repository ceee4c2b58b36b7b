package ollama

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

func buildExtractionPrompt(text, pendingField string, fields []string, known domain.Profile) string {
	const maxSnippet = 2000
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	var b strings.Builder
	b.WriteString("You extract contact fields from one chat message.\n")
	b.WriteString("Return a strict JSON object mapping field name to the value found in the message.\n")
	b.WriteString("Only these field names are allowed: " + strings.Join(fields, ", ") + ".\n")
	b.WriteString("Omit any field the message does not mention. No markdown, no extra keys.\n")
	if pendingField != "" {
		fmt.Fprintf(&b, "The user was just asked for their %s.\n", pendingField)
	}
	if len(known) > 0 {
		keys := make([]string, 0, len(known))
		for k := range known {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Already collected: " + strings.Join(keys, ", ") + ".\n")
	}
	b.WriteString("\nMessage:\n" + snippet)
	return b.String()
}

func buildSummaryPrompt(profile domain.Profile) string {
	keys := make([]string, 0, len(profile))
	for k := range profile {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Write a short professional summary (2-4 sentences) of this sales lead.\n")
	b.WriteString("Mention every provided detail once. Plain prose, no markdown, no preamble.\n\nLead details:\n")
	for _, k := range keys {
		value := profile[k]
		if value == "" || value == domain.SkippedValue {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", k, value)
	}
	return b.String()
}

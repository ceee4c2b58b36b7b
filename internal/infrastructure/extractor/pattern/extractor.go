// Package pattern extracts (field, value) candidates from free text with
// regular expressions. It is the zero-dependency extractor used when no model
// backend is configured, and the fallback behind one.
package pattern

import (
	"context"
	"regexp"
	"strings"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

var (
	changeRe = regexp.MustCompile(`(?i)\b(?:change|update|set)\s+(?:my\s+)?([a-z]+)\s*(?:to|=|:)\s*(.+)`)
	emailRe  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe  = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
	ageRe    = regexp.MustCompile(`(?i)(?:my\s+)?age\s*(?:is|:|=)?\s*(\d{1,3}|skip)\b`)
	cityRe   = regexp.MustCompile(`(?i)(?:(?:my\s+)?city\s*(?:is|:|=)|(?:live|located|based|i'?m)\s+in)\s+([A-Za-z][A-Za-z .'\-]{1,29})`)
	nameRe   = regexp.MustCompile(`(?i)(?:my\s+)?name\s*(?:is|:|=)\s*([A-Za-z][A-Za-z .'\-]{1,39})`)
)

// fieldAliases maps the words users write to schema field names.
var fieldAliases = map[string]string{
	"phone":  "mobile",
	"number": "mobile",
	"mail":   "email",
	"town":   "city",
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract scans text for field values. An explicit "change <field> to <value>"
// request wins over pattern scanning for that field. The pending field is not
// filled here; the caller owns the raw-answer fallback.
func (e *Extractor) Extract(_ context.Context, text, _ string, _ domain.Profile) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(text) == "" {
		return out, nil
	}

	if m := emailRe.FindString(text); m != "" {
		out["email"] = m
	}
	if m := phoneRe.FindString(text); m != "" {
		out["mobile"] = strings.TrimSpace(m)
	}
	if m := ageRe.FindStringSubmatch(text); m != nil {
		out["age"] = m[1]
	}
	if m := cityRe.FindStringSubmatch(text); m != nil {
		out["city"] = strings.TrimSpace(m[1])
	}
	if m := nameRe.FindStringSubmatch(text); m != nil {
		out["name"] = strings.TrimSpace(m[1])
	}

	if m := changeRe.FindStringSubmatch(text); m != nil {
		field := strings.ToLower(m[1])
		if alias, ok := fieldAliases[field]; ok {
			field = alias
		}
		value := strings.Trim(strings.TrimSpace(m[2]), `."'`)
		if value != "" {
			out[field] = value
		}
	}
	return out, nil
}

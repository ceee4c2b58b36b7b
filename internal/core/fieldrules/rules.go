// Package fieldrules holds the pure normalization and validation rules applied
// to raw answers before they enter a profile.
package fieldrules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

const (
	RuleName  = "name"
	RuleEmail = "email"
	RulePhone = "phone"
	RuleAge   = "age"
	RuleCity  = "city"
	RuleText  = "text"
)

var (
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	alphaRe = regexp.MustCompile(`^[A-Za-z][A-Za-z .'\-]*$`)
	digitRe = regexp.MustCompile(`\D`)
)

// IsSkip reports whether the raw answer is the skip keyword.
func IsSkip(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "skip")
}

// Normalize canonicalizes a raw answer for the given rule. It never rejects;
// rejection is Validate's job.
func Normalize(rule, raw string) string {
	v := strings.TrimSpace(raw)
	if IsSkip(v) {
		return "skip"
	}
	switch rule {
	case RuleEmail:
		return strings.ToLower(v)
	case RulePhone:
		digits := digitRe.ReplaceAllString(v, "")
		if digits == "" {
			return v
		}
		return "+" + digits
	case RuleAge:
		return strings.TrimSuffix(strings.ToLower(v), " years old")
	default:
		return v
	}
}

// Validate checks a normalized value against the rule. The skip keyword is
// accepted only for optional fields; required fields cannot be skipped.
func Validate(field, rule, value string, optional bool) error {
	if value == "skip" {
		if optional {
			return nil
		}
		return fmt.Errorf("%s is required and cannot be skipped", field)
	}
	if value == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}

	switch rule {
	case RuleName:
		if len(value) < 2 || !alphaRe.MatchString(value) {
			return fmt.Errorf("a name needs at least 2 letters (letters and spaces only)")
		}
	case RuleEmail:
		if !emailRe.MatchString(value) {
			return fmt.Errorf("that doesn't look like a valid email address (expected user@domain)")
		}
	case RulePhone:
		digits := strings.TrimPrefix(value, "+")
		if len(digits) < 10 || len(digits) > 15 || digitRe.MatchString(digits) {
			return fmt.Errorf("a phone number needs 10 to 15 digits (country code welcome)")
		}
	case RuleAge:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("age must be a number")
		}
		if n < 1 || n > 120 {
			return fmt.Errorf("age must be between 1 and 120")
		}
	case RuleCity:
		if len(value) < 2 || !alphaRe.MatchString(value) {
			return fmt.Errorf("a city name needs at least 2 letters")
		}
	case RuleText:
		// Anything non-empty passes.
	default:
		return fmt.Errorf("unknown validation rule %q for %s", rule, field)
	}
	return nil
}

// Apply normalizes and validates a raw answer for a schema field and returns
// the value to store (SkippedValue when an optional field is skipped).
func Apply(schema domain.FieldSchema, field, raw string) (string, error) {
	spec, ok := schema.Spec(field)
	if !ok {
		return "", fmt.Errorf("unknown field %q", field)
	}
	optional := schema.IsOptional(field)
	value := Normalize(spec.Rule, raw)
	if err := Validate(field, spec.Rule, value, optional); err != nil {
		return "", err
	}
	if optional && value == "skip" {
		return domain.SkippedValue, nil
	}
	return value, nil
}

// DefaultSchema mirrors the built-in intake field set.
func DefaultSchema() domain.FieldSchema {
	return domain.FieldSchema{
		Required: []domain.FieldSpec{
			{Name: "name", Question: "What's your full name?", Rule: RuleName},
			{Name: "email", Question: "What's your email address?", Rule: RuleEmail},
			{Name: "mobile", Question: "What's your mobile number? (Include country code if possible)", Rule: RulePhone},
		},
		Optional: []domain.FieldSpec{
			{Name: "age", Question: "What's your age? (You can type 'skip')", Rule: RuleAge},
			{Name: "city", Question: "Which city are you in? (You can type 'skip')", Rule: RuleCity},
		},
		MaxAttempts: 3,
	}
}

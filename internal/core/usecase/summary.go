package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/ports"
)

const (
	summaryMaxAttempts = 3
	summaryMinLength   = 50
)

// SummaryStep produces the lead summary for a confirmed profile. Generation is
// retried with exponential backoff; when every attempt fails or comes back
// degenerate, a deterministic field-list summary is used instead. The step
// itself never fails.
type SummaryStep struct {
	generator ports.SummaryGenerator
	schema    domain.FieldSchema
	logger    *slog.Logger

	maxAttempts int
	minLength   int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewSummaryStep(generator ports.SummaryGenerator, schema domain.FieldSchema, logger *slog.Logger) *SummaryStep {
	return &SummaryStep{
		generator:   generator,
		schema:      schema,
		logger:      logger,
		maxAttempts: summaryMaxAttempts,
		minLength:   summaryMinLength,
		sleep:       sleepCtx,
	}
}

// WithLimits overrides the retry budget and minimum acceptable length.
// Intended for wiring, not per-call use.
func (s *SummaryStep) WithLimits(maxAttempts, minLength int) *SummaryStep {
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if minLength > 0 {
		s.minLength = minLength
	}
	return s
}

// Produce returns the summary text and whether the fallback was used.
func (s *SummaryStep) Produce(ctx context.Context, profile domain.Profile) (string, bool) {
	if s.generator != nil {
		for attempt := 1; attempt <= s.maxAttempts; attempt++ {
			text, err := s.generator.GenerateSummary(ctx, profile)
			if err == nil {
				text = strings.TrimSpace(text)
				if len(text) >= s.minLength {
					return text, false
				}
				err = fmt.Errorf("summary too short: %d chars", len(text))
			}
			s.logger.Warn("summary attempt failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			if attempt == s.maxAttempts {
				break
			}
			if s.sleep(ctx, time.Duration(1<<attempt)*time.Second) != nil {
				break
			}
		}
	}
	s.logger.Warn("summary generation exhausted, using fallback")
	return s.fallback(profile), true
}

// fallback renders the profile as a field list in schema order so the result
// is stable for a given profile.
func (s *SummaryStep) fallback(profile domain.Profile) string {
	lines := []string{"Lead Profile Summary:"}
	for _, field := range s.schema.FieldNames() {
		value := profile[field]
		if value == "" || value == domain.SkippedValue {
			value = msgNotProvided
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", titleCase(field), value))
	}
	return strings.Join(lines, "\n")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

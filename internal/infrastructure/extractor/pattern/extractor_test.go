package pattern

import (
	"context"
	"testing"
)

func TestExtractFindsEmailAndPhone(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract(context.Background(), "reach me at Jane.Doe@Example.com or +1 202-555-0123", "", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got["email"] != "Jane.Doe@Example.com" {
		t.Fatalf("email = %q", got["email"])
	}
	if got["mobile"] != "+1 202-555-0123" {
		t.Fatalf("mobile = %q", got["mobile"])
	}
}

func TestExtractLabeledFields(t *testing.T) {
	e := NewExtractor()
	got, _ := e.Extract(context.Background(), "my name is Jane Doe, age is 30, I live in New York", "", nil)
	if got["name"] != "Jane Doe" {
		t.Fatalf("name = %q", got["name"])
	}
	if got["age"] != "30" {
		t.Fatalf("age = %q", got["age"])
	}
	if got["city"] != "New York" {
		t.Fatalf("city = %q", got["city"])
	}
}

func TestExtractChangeRequest(t *testing.T) {
	e := NewExtractor()
	got, _ := e.Extract(context.Background(), "please change phone to +12025550123", "", nil)
	if got["mobile"] != "+12025550123" {
		t.Fatalf("mobile = %q, want aliased change target", got["mobile"])
	}
}

func TestExtractPlainAnswerYieldsNoCandidates(t *testing.T) {
	e := NewExtractor()
	got, _ := e.Extract(context.Background(), "Jane Doe", "name", nil)
	if len(got) != 0 {
		t.Fatalf("expected no candidates for a bare answer, got %v", got)
	}
}

func TestExtractEmptyText(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract(context.Background(), "   ", "", nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
}

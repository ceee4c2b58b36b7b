package airtable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

func TestCreateRecordMapsProfileFields(t *testing.T) {
	var capturedPath string
	var capturedAuth string
	var capturedFields map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAuth = r.Header.Get("Authorization")
		var payload struct {
			Records []struct {
				Fields map[string]string `json:"fields"`
			} `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		capturedFields = payload.Records[0].Fields
		_, _ = w.Write([]byte(`{"records":[{"id":"recABC123"}]}`))
	}))
	defer server.Close()

	client := New("key", "appBase", "Leads", nil, nil).WithBaseURL(server.URL)
	profile := domain.Profile{
		"name":   "Jane Doe",
		"email":  "jane@example.com",
		"mobile": "+12025550123",
		"age":    domain.SkippedValue,
	}

	recordID, err := client.CreateRecord(context.Background(), profile, "a summary")
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if recordID != "recABC123" {
		t.Fatalf("record id = %q", recordID)
	}
	if capturedPath != "/appBase/Leads" {
		t.Fatalf("path = %q", capturedPath)
	}
	if capturedAuth != "Bearer key" {
		t.Fatalf("auth = %q", capturedAuth)
	}
	if capturedFields["Name"] != "Jane Doe" || capturedFields["Summary"] != "a summary" {
		t.Fatalf("fields = %v", capturedFields)
	}
	if _, ok := capturedFields["Age"]; ok {
		t.Fatalf("skipped fields must not be sent: %v", capturedFields)
	}
}

func TestCreateRecordErrorCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"INVALID_PERMISSIONS"}}`, http.StatusForbidden)
	}))
	defer server.Close()

	client := New("key", "appBase", "Leads", nil, nil).WithBaseURL(server.URL)
	_, err := client.CreateRecord(context.Background(), domain.Profile{"name": "Jane Doe"}, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "INVALID_PERMISSIONS") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}

func TestCreateRecordUnconfigured(t *testing.T) {
	client := New("", "", "Leads", nil, nil)
	if _, err := client.CreateRecord(context.Background(), domain.Profile{}, ""); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestParseFieldMapping(t *testing.T) {
	mapping, err := ParseFieldMapping(`{"name":"Full Name"}`)
	if err != nil {
		t.Fatalf("ParseFieldMapping() error = %v", err)
	}
	if mapping["name"] != "Full Name" {
		t.Fatalf("mapping = %v", mapping)
	}

	mapping, err = ParseFieldMapping("")
	if err != nil || mapping["email"] != "Email" {
		t.Fatalf("default mapping = %v, %v", mapping, err)
	}

	if _, err := ParseFieldMapping("{broken"); err == nil {
		t.Fatalf("expected parse error")
	}
}

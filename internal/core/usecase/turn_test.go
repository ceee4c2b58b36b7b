package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
	"github.com/avolkov/lead-intake-assistant/internal/core/fieldrules"
)

func newTestTurnUseCase(store *sessionStoreFake, gen *generatorFake, queue *queueFake) *TurnUseCase {
	if gen == nil {
		gen = &generatorFake{replies: []generatorReply{{text: longSummary}}}
	}
	machine := NewMachine(fieldrules.DefaultSchema(), &extractorFake{})
	step := NewSummaryStep(gen, fieldrules.DefaultSchema(), testLogger())
	step.sleep = func(context.Context, time.Duration) error { return nil }
	return NewTurnUseCase(store, machine, step, queue, testLogger())
}

func TestStartSessionAsksFirstQuestion(t *testing.T) {
	store := newSessionStoreFake()
	uc := newTestTurnUseCase(store, nil, nil)

	result, err := uc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if result.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	if result.Status != domain.StatusCollecting {
		t.Fatalf("status = %s, want collecting", result.Status)
	}
	if !strings.Contains(result.Message, "full name") {
		t.Fatalf("first question = %q", result.Message)
	}
	if _, ok := store.states[result.SessionID]; !ok {
		t.Fatalf("session not persisted")
	}
}

func TestHandleTurnFullConversation(t *testing.T) {
	store := newSessionStoreFake()
	queue := &queueFake{}
	uc := newTestTurnUseCase(store, nil, queue)

	started, err := uc.StartSession(context.Background())
	if err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	id := started.SessionID

	turns := []struct {
		message    string
		wantStatus domain.Status
	}{
		{"Jane Doe", domain.StatusCollecting},
		{"jane@example.com", domain.StatusCollecting},
		{"+1 202 555 0123", domain.StatusCollecting},
		{"30", domain.StatusCollecting},
		{"Boston", domain.StatusConfirming},
		{"yes", domain.StatusCompleted},
	}
	var result *domain.TurnResult
	for _, turn := range turns {
		result, err = uc.HandleTurn(context.Background(), id, turn.message)
		if err != nil {
			t.Fatalf("HandleTurn(%q) error = %v", turn.message, err)
		}
		if result.Status != turn.wantStatus {
			t.Fatalf("HandleTurn(%q) status = %s, want %s", turn.message, result.Status, turn.wantStatus)
		}
	}

	if !strings.Contains(result.Message, longSummary) {
		t.Fatalf("final message should carry the summary:\n%s", result.Message)
	}
	st := store.states[id]
	if st.SummaryText != longSummary || st.SummaryFallback {
		t.Fatalf("summary = %q, fallback = %v", st.SummaryText, st.SummaryFallback)
	}
	if st.Profile["mobile"] != "+12025550123" {
		t.Fatalf("mobile = %q, want normalized", st.Profile["mobile"])
	}
	if len(queue.published) != 1 || queue.published[0] != id {
		t.Fatalf("published = %v, want [%s]", queue.published, id)
	}
}

func TestHandleTurnWithoutSessionStartsConversation(t *testing.T) {
	store := newSessionStoreFake()
	uc := newTestTurnUseCase(store, nil, nil)

	result, err := uc.HandleTurn(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if result.SessionID == "" {
		t.Fatalf("expected generated session id")
	}
	if result.Status != domain.StatusCollecting || !strings.Contains(result.Message, "name") {
		t.Fatalf("status = %s, message = %q", result.Status, result.Message)
	}
}

func TestHandleTurnRejectsEmptyStart(t *testing.T) {
	uc := newTestTurnUseCase(newSessionStoreFake(), nil, nil)

	if _, err := uc.HandleTurn(context.Background(), "", "  "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHandleTurnUnknownSession(t *testing.T) {
	uc := newTestTurnUseCase(newSessionStoreFake(), nil, nil)

	if _, err := uc.HandleTurn(context.Background(), "missing", "hi"); !domain.IsKind(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestHandleTurnCompletesDespiteQueueFailure(t *testing.T) {
	store := newSessionStoreFake()
	queue := &queueFake{err: context.DeadlineExceeded}
	uc := newTestTurnUseCase(store, nil, queue)

	st := domain.NewConversationState("sess-q", time.Now().UTC())
	st.Profile = domain.Profile{
		"name": "Jane Doe", "email": "jane@example.com", "mobile": "+12025550123",
		"age": "30", "city": "Boston",
	}
	store.states[st.SessionID] = st
	uc.machine.Advance(context.Background(), st) // render confirmation

	result, err := uc.HandleTurn(context.Background(), "sess-q", "yes")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if result.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", result.Status)
	}
}

func TestHandleTurnIsIdempotentWithoutNewMessage(t *testing.T) {
	store := newSessionStoreFake()
	uc := newTestTurnUseCase(store, nil, nil)
	started, _ := uc.StartSession(context.Background())

	result, err := uc.HandleTurn(context.Background(), started.SessionID, "")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if len(result.Events) != 0 {
		t.Fatalf("expected no events replaying unchanged state, got %+v", result.Events)
	}
	if len(store.states[started.SessionID].Messages) != 1 {
		t.Fatalf("expected single outbound question, got %d messages", len(store.states[started.SessionID].Messages))
	}
}

func TestSnapshotDoesNotAdvance(t *testing.T) {
	store := newSessionStoreFake()
	uc := newTestTurnUseCase(store, nil, nil)
	started, _ := uc.StartSession(context.Background())
	messages := len(store.states[started.SessionID].Messages)

	snap, err := uc.Snapshot(context.Background(), started.SessionID)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Status != domain.StatusCollecting {
		t.Fatalf("status = %s", snap.Status)
	}
	if len(store.states[started.SessionID].Messages) != messages {
		t.Fatalf("snapshot must not append messages")
	}
}

func TestResetDeletesSession(t *testing.T) {
	store := newSessionStoreFake()
	uc := newTestTurnUseCase(store, nil, nil)
	started, _ := uc.StartSession(context.Background())

	if err := uc.Reset(context.Background(), started.SessionID); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != started.SessionID {
		t.Fatalf("deleted = %v", store.deleted)
	}
}

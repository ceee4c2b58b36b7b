package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sessionStoreFake struct {
	states  map[string]*domain.ConversationState
	loadErr error
	saveErr error
	saves   int
	deleted []string
}

func newSessionStoreFake() *sessionStoreFake {
	return &sessionStoreFake{states: map[string]*domain.ConversationState{}}
}

func (f *sessionStoreFake) Load(_ context.Context, sessionID string) (*domain.ConversationState, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	st, ok := f.states[sessionID]
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "load session", errors.New(sessionID))
	}
	return st, nil
}

func (f *sessionStoreFake) Save(_ context.Context, st *domain.ConversationState) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.states[st.SessionID] = st
	return nil
}

func (f *sessionStoreFake) Delete(_ context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	delete(f.states, sessionID)
	return nil
}

// extractorFake answers from a fixed candidate map, or errors.
type extractorFake struct {
	candidates map[string]string
	err        error
	calls      int
}

func (f *extractorFake) Extract(context.Context, string, string, domain.Profile) (map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type generatorReply struct {
	text string
	err  error
}

type generatorFake struct {
	replies []generatorReply
	calls   int
}

func (f *generatorFake) GenerateSummary(context.Context, domain.Profile) (string, error) {
	reply := f.replies[len(f.replies)-1]
	if f.calls < len(f.replies) {
		reply = f.replies[f.calls]
	}
	f.calls++
	return reply.text, reply.err
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishLeadCompleted(_ context.Context, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, sessionID)
	return nil
}

func (f *queueFake) SubscribeLeadCompleted(context.Context, func(context.Context, string) error) error {
	return nil
}

type leadStoreFake struct {
	created []*domain.Lead
	err     error
}

func (f *leadStoreFake) CreateLead(_ context.Context, lead *domain.Lead) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, lead)
	return nil
}

func (f *leadStoreFake) ListLeads(context.Context, int) ([]domain.Lead, error) {
	out := make([]domain.Lead, 0, len(f.created))
	for _, l := range f.created {
		out = append(out, *l)
	}
	return out, nil
}

type sinkFake struct {
	recordID string
	err      error
	calls    int
}

func (f *sinkFake) CreateRecord(context.Context, domain.Profile, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.recordID, nil
}

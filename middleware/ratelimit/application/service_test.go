package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"finance-ai-backend/middleware/ratelimit/domain"
)

// fakeWindow devolve contagens pré-programadas, na ordem.
type fakeWindow struct {
	counts []int
	calls  int
	err    error

	lastKey    string
	lastWindow time.Duration
}

func (f *fakeWindow) Count(_ context.Context, key string, window time.Duration) (int, error) {
	f.lastKey = key
	f.lastWindow = window
	if f.err != nil {
		return 0, f.err
	}
	n := f.counts[f.calls]
	if f.calls < len(f.counts)-1 {
		f.calls++
	}
	return n, nil
}

func TestService_Check_SequenceWithinBudget(t *testing.T) {
	// cenário de referência: max=3, janela=60s, 4 requisições em sequência
	store := &fakeWindow{counts: []int{1, 2, 3, 4}}
	svc := Service{
		Store:   store,
		Configs: map[string]domain.Config{"ai-agent": {MaxRequests: 3, WindowSeconds: 60}},
	}
	ctx := context.Background()

	wantAllowed := []bool{true, true, true, false}
	wantRemaining := []int{2, 1, 0, 0}

	for i := range wantAllowed {
		dec := svc.Check(ctx, "u1", "ai-agent")
		if dec.Allowed != wantAllowed[i] {
			t.Fatalf("request %d: expected allowed=%v, got %v", i+1, wantAllowed[i], dec.Allowed)
		}
		if dec.Remaining != wantRemaining[i] {
			t.Fatalf("request %d: expected remaining=%d, got %d", i+1, wantRemaining[i], dec.Remaining)
		}
	}

	if store.lastKey != "ratelimit:u1:ai-agent" {
		t.Fatalf("unexpected window key %q", store.lastKey)
	}
	if store.lastWindow != 60*time.Second {
		t.Fatalf("unexpected window %s", store.lastWindow)
	}
}

func TestService_Check_RejectionReportsZeroRemaining(t *testing.T) {
	store := &fakeWindow{counts: []int{4}}
	svc := Service{
		Store:   store,
		Configs: map[string]domain.Config{"ai-agent": {MaxRequests: 3, WindowSeconds: 60}},
	}

	dec := svc.Check(context.Background(), "u1", "ai-agent")
	if dec.Allowed {
		t.Fatalf("expected rejected")
	}
	if dec.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", dec.Remaining)
	}
	if dec.Total != 4 {
		t.Fatalf("expected total=4, got %d", dec.Total)
	}
	if dec.ResetInSeconds != 60 {
		t.Fatalf("expected reset=60, got %d", dec.ResetInSeconds)
	}
}

func TestService_Check_FailsOpenOnStoreError(t *testing.T) {
	store := &fakeWindow{err: errors.New("connection refused")}
	svc := Service{
		Store:   store,
		Configs: map[string]domain.Config{"ai-agent": {MaxRequests: 3, WindowSeconds: 60}},
	}

	// store fora do ar => sempre admite, com a cota cheia reportada
	for i := 0; i < 10; i++ {
		dec := svc.Check(context.Background(), "u1", "ai-agent")
		if !dec.Allowed {
			t.Fatalf("expected fail-open allow on attempt %d", i+1)
		}
		if dec.Remaining != 3 {
			t.Fatalf("expected full quota remaining, got %d", dec.Remaining)
		}
	}
}

func TestService_Check_FailsOpenWithoutStore(t *testing.T) {
	svc := Service{}
	dec := svc.Check(context.Background(), "u1", "anything")
	if !dec.Allowed {
		t.Fatalf("expected allow when store is absent")
	}
}

func TestService_Check_UnknownEndpointUsesDefaultConfig(t *testing.T) {
	store := &fakeWindow{counts: []int{1}}
	svc := Service{Store: store}

	dec := svc.Check(context.Background(), "u1", "nunca-configurado")
	def := domain.ConfigFor(nil, domain.DefaultEndpoint)
	if dec.Limit != def.MaxRequests {
		t.Fatalf("expected default limit %d, got %d", def.MaxRequests, dec.Limit)
	}
}

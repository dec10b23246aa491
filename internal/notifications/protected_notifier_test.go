package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakySender struct {
	err   error
	calls int
}

func (f *flakySender) SendWelcome(ctx context.Context, in WelcomeInput) error {
	f.calls++
	return f.err
}

func (f *flakySender) SendRegistrationConfirmation(ctx context.Context, in RegistrationConfirmationInput) error {
	f.calls++
	return f.err
}

func TestProtectedNotifierOpensAfterThreshold(t *testing.T) {
	inner := &flakySender{err: errors.New("smtp down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 3,
		Cooldown:         time.Hour,
	})

	ctx := context.Background()
	in := WelcomeInput{Email: "member@example.com", Name: "Member"}

	for i := 0; i < 3; i++ {
		if err := n.SendWelcome(ctx, in); err == nil {
			t.Fatalf("send %d should fail while the provider is down", i+1)
		}
	}

	// threshold reached; the next call must not touch the provider
	if err := n.SendWelcome(ctx, in); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}

	if inner.calls != 3 {
		t.Fatalf("provider called %d times, want 3", inner.calls)
	}
}

func TestProtectedNotifierRecoversThroughHalfOpen(t *testing.T) {
	inner := &flakySender{err: errors.New("smtp down")}

	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 1,
		Cooldown:         10 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	ctx := context.Background()
	in := RegistrationConfirmationInput{Email: "member@example.com", Name: "Member", EventTitle: "Go Meetup"}

	if err := n.SendRegistrationConfirmation(ctx, in); err == nil {
		t.Fatalf("first send should fail and open the circuit")
	}

	if err := n.SendRegistrationConfirmation(ctx, in); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen while cooling down", err)
	}

	time.Sleep(20 * time.Millisecond)

	// provider recovered; the half-open trial closes the circuit again
	inner.err = nil

	if err := n.SendRegistrationConfirmation(ctx, in); err != nil {
		t.Fatalf("half-open trial should succeed, got %v", err)
	}

	if err := n.SendRegistrationConfirmation(ctx, in); err != nil {
		t.Fatalf("circuit should be closed again, got %v", err)
	}
}

package humaninput

import (
	"context"
	"testing"
	"time"

	"github.com/odvcencio/wayfarer/pkg/narrator"
)

type fakePoller struct {
	action narrator.HumanInputAction
	ready  bool
}

func (f *fakePoller) PollHumanInput(requestID string) (narrator.HumanInputAction, bool) {
	return f.action, f.ready
}

func TestGate_Wait_Done(t *testing.T) {
	g := New(nil, nil, time.Second, 10*time.Millisecond)
	poller := &fakePoller{action: narrator.HumanInputDone, ready: true}
	outcome, err := g.Wait(context.Background(), poller, "req-1", "need your help")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeDone {
		t.Fatalf("expected OutcomeDone, got %v", outcome)
	}
}

func TestGate_Wait_Abort(t *testing.T) {
	g := New(nil, nil, time.Second, 10*time.Millisecond)
	poller := &fakePoller{action: narrator.HumanInputAbort, ready: true}
	outcome, err := g.Wait(context.Background(), poller, "req-1", "need your help")
	if err != ErrAborted {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if outcome != OutcomeAbort {
		t.Fatalf("expected OutcomeAbort, got %v", outcome)
	}
}

func TestGate_Wait_Timeout(t *testing.T) {
	g := New(nil, nil, 30*time.Millisecond, 5*time.Millisecond)
	poller := &fakePoller{ready: false}
	outcome, err := g.Wait(context.Background(), poller, "req-1", "need your help")
	if err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if outcome != OutcomeTimeout {
		t.Fatalf("expected OutcomeTimeout, got %v", outcome)
	}
}

func TestGate_Wait_ContextCancelled(t *testing.T) {
	g := New(nil, nil, time.Second, 5*time.Millisecond)
	poller := &fakePoller{ready: false}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := g.Wait(ctx, poller, "req-1", "need your help")
	if err == nil {
		t.Fatal("expected context error")
	}
	if outcome != OutcomeAbort {
		t.Fatalf("expected OutcomeAbort, got %v", outcome)
	}
}

func TestPushSubscription_Notify_NilIsNoOp(t *testing.T) {
	var p *PushSubscription
	if err := p.Notify(context.Background(), "hi"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	p2 := &PushSubscription{}
	if err := p2.Notify(context.Background(), "hi"); err != nil {
		t.Fatalf("expected nil error for unset subscription, got %v", err)
	}
}

// Package humaninput implements the human-input gate (spec §4.10): once a
// tool sets requiresHumanInput, the run stops invoking further tools and
// waits for an operator response or a timeout, polling for resolution the
// way the spec describes rather than blocking on a single channel receive.
package humaninput

import (
	"context"
	"errors"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/odvcencio/wayfarer/pkg/narrator"
)

// ErrAborted is returned when the operator explicitly declines the request.
var ErrAborted = errors.New("human input aborted")

// ErrTimeout is returned when no response arrives within the gate's timeout.
var ErrTimeout = errors.New("human input timed out")

// Outcome is how a Wait call resolved.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAbort   Outcome = "abort"
	OutcomeTimeout Outcome = "timeout"
)

// ResponsePoller is the subset of ExecutionContext the gate needs: somewhere
// an operator-facing surface records resolved human-input requests for the
// gate to observe. Defined here (rather than imported) so this package and
// pkg/execution don't form an import cycle; *execution.ExecutionContext
// satisfies this interface structurally.
type ResponsePoller interface {
	PollHumanInput(requestID string) (narrator.HumanInputAction, bool)
}

// PushSubscription holds the Web Push endpoint and VAPID keys needed to
// notify an operator who isn't watching the UI when a gate opens. A nil
// *PushSubscription (or nil Subscription) makes Notify a no-op.
type PushSubscription struct {
	Subscription   *webpush.Subscription
	Subscriber     string // contact URI/email required by the VAPID spec
	VAPIDPublicKey string
	VAPIDPrivateKey string
	TTL            int
}

// Notify best-effort pushes prompt to the subscribed endpoint. Failures are
// returned to the caller to log, but never fail the gate itself — the
// narrator event and the in-UI prompt are the primary channel, the push is
// just a chance at meeting the timeout when nobody has focus.
func (p *PushSubscription) Notify(ctx context.Context, prompt string) error {
	if p == nil || p.Subscription == nil {
		return nil
	}
	ttl := p.TTL
	if ttl <= 0 {
		ttl = 30
	}
	resp, err := webpush.SendNotification([]byte(prompt), p.Subscription, &webpush.Options{
		Subscriber:      p.Subscriber,
		VAPIDPublicKey:  p.VAPIDPublicKey,
		VAPIDPrivateKey: p.VAPIDPrivateKey,
		TTL:             ttl,
	})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// Gate implements the wait loop described in spec §4.10.
type Gate struct {
	Narrator      *narrator.Narrator
	Push          *PushSubscription
	Timeout       time.Duration
	CheckInterval time.Duration
}

// New builds a Gate, substituting the documented defaults (10min / 500ms)
// for non-positive durations.
func New(n *narrator.Narrator, push *PushSubscription, timeout, checkInterval time.Duration) *Gate {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if checkInterval <= 0 {
		checkInterval = 500 * time.Millisecond
	}
	return &Gate{Narrator: n, Push: push, Timeout: timeout, CheckInterval: checkInterval}
}

// Wait publishes the human-input request, then polls poller every
// CheckInterval until a response is recorded, the Gate's Timeout elapses, or
// ctx is cancelled.
func (g *Gate) Wait(ctx context.Context, poller ResponsePoller, requestID, prompt string) (Outcome, error) {
	if g.Narrator != nil {
		g.Narrator.HumanInputRequest(ctx, requestID, prompt)
	}
	if g.Push != nil {
		_ = g.Push.Notify(ctx, prompt)
	}

	deadline := time.NewTimer(g.Timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(g.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return OutcomeAbort, ctx.Err()
		case <-deadline.C:
			return OutcomeTimeout, ErrTimeout
		case <-ticker.C:
			action, ok := poller.PollHumanInput(requestID)
			if !ok {
				continue
			}
			if action == narrator.HumanInputDone {
				return OutcomeDone, nil
			}
			return OutcomeAbort, ErrAborted
		}
	}
}

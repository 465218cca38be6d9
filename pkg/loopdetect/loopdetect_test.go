package loopdetect

import "testing"

func TestDetector_Defaults(t *testing.T) {
	d := New(0, 0)
	if d.Lookback != 8 || d.Threshold != 4 {
		t.Fatalf("expected defaults 8/4, got %d/%d", d.Lookback, d.Threshold)
	}
}

func TestDetect_NoLoop(t *testing.T) {
	d := New(8, 4)
	msgs := []string{"navigate to amazon", "search toothpaste", "add to cart", "checkout"}
	if d.Detect(msgs) {
		t.Fatal("expected no loop for distinct messages")
	}
}

func TestDetect_ExactRepeat(t *testing.T) {
	d := New(8, 4)
	msgs := []string{"clicking the button", "clicking the button", "clicking the button", "clicking the button"}
	if !d.Detect(msgs) {
		t.Fatal("expected loop for 4 identical messages")
	}
}

func TestDetect_CaseAndWhitespaceNormalised(t *testing.T) {
	d := New(8, 4)
	msgs := []string{"Done!", " DONE! ", "done!", "DONE!"}
	if !d.Detect(msgs) {
		t.Fatal("expected loop across case/whitespace variants")
	}
}

func TestDetect_BelowThreshold(t *testing.T) {
	d := New(8, 4)
	msgs := []string{"retry", "retry", "retry", "something else"}
	if d.Detect(msgs) {
		t.Fatal("expected no loop below threshold")
	}
}

func TestDetect_OnlyLooksAtLookbackWindow(t *testing.T) {
	d := New(3, 2)
	// Only the last 3 are considered; "a" appears twice overall but once in
	// the window, "b" appears twice in the window.
	msgs := []string{"a", "a", "b", "b"}
	if !d.Detect(msgs) {
		t.Fatal("expected loop from the trailing window")
	}
}

package logger

import "testing"

func TestNew_FallsBackToInfo(t *testing.T) {
	l, err := New("chatty")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.Desugar().Core().Enabled(-1) {
		t.Errorf("debug should be disabled at the fallback level")
	}
}

func TestInit_Debug(t *testing.T) {
	old := L
	defer func() { L = old }()

	if err := Init("DEBUG"); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !L.Desugar().Core().Enabled(-1) {
		t.Errorf("expected debug level to be enabled")
	}
}

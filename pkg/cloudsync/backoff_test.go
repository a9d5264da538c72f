package cloudsync

import (
	"testing"
	"time"
)

// TestBackoff_Sequence verifies the delay before attempt k equals
// min(base * 2^(k-1), max).
func TestBackoff_Sequence(t *testing.T) {
	base := 5 * time.Second
	max := 60 * time.Second
	b := NewBackoff(base, max)

	want := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		60 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for k, expected := range want {
		got := b.Next()
		if got != expected {
			t.Errorf("attempt %d: got delay %v, want %v", k+1, got, expected)
		}
	}
}

func TestBackoff_ResetReturnsToBase(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)

	for i := 0; i < 5; i++ {
		b.Next()
	}
	b.Reset()

	if got := b.Next(); got != time.Second {
		t.Errorf("delay after reset: got %v, want %v", got, time.Second)
	}
}

func TestBackoff_BaseEqualsMax(t *testing.T) {
	b := NewBackoff(10*time.Second, 10*time.Second)

	for i := 0; i < 3; i++ {
		if got := b.Next(); got != 10*time.Second {
			t.Errorf("attempt %d: got delay %v, want %v", i+1, got, 10*time.Second)
		}
	}
}

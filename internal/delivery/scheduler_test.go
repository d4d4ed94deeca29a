package delivery

import (
	"testing"
	"time"
)

func TestBackoffDoubles(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 60 * time.Second},
		{attempt: 2, want: 120 * time.Second},
		{attempt: 3, want: 240 * time.Second},
		{attempt: 4, want: 480 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(60*time.Second, tt.attempt); got != tt.want {
			t.Errorf("Backoff(60s, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffStrictlyIncreasing(t *testing.T) {
	prev := time.Duration(0)
	for n := 1; n <= 20; n++ {
		got := Backoff(time.Second, n)
		if got <= prev {
			t.Fatalf("Backoff(1s, %d) = %v, not greater than %v", n, got, prev)
		}
		prev = got
	}
}

func TestBackoffClampsInvalidAttempt(t *testing.T) {
	if got := Backoff(time.Second, 0); got != time.Second {
		t.Errorf("Backoff(1s, 0) = %v, want 1s", got)
	}
	if got := Backoff(time.Second, -3); got != time.Second {
		t.Errorf("Backoff(1s, -3) = %v, want 1s", got)
	}
}

func TestBackoffDoesNotOverflow(t *testing.T) {
	if got := Backoff(time.Minute, 1000); got <= 0 {
		t.Errorf("Backoff(1m, 1000) = %v, want positive", got)
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name       string
		attempt    int
		maxRetries int
		want       bool
	}{
		{name: "no retries allowed", attempt: 1, maxRetries: 0, want: false},
		{name: "first failure with budget", attempt: 1, maxRetries: 3, want: true},
		{name: "last retry still allowed", attempt: 3, maxRetries: 3, want: true},
		{name: "budget exhausted", attempt: 4, maxRetries: 3, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldRetry(tt.attempt, tt.maxRetries); got != tt.want {
				t.Errorf("ShouldRetry(%d, %d) = %v, want %v",
					tt.attempt, tt.maxRetries, got, tt.want)
			}
		})
	}
}

func TestNextRetryAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	got := NextRetryAt(now, 60*time.Second, 2)
	want := now.Add(120 * time.Second)
	if !got.Equal(want) {
		t.Errorf("NextRetryAt = %v, want %v", got, want)
	}
}

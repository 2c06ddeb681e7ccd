// SPDX-License-Identifier: MIT

package ratelimit

import (
	"testing"
	"time"
)

func newTestLimiter(limit int, window time.Duration) (*LoginLimiter, *time.Time) {
	l := New(Config{Limit: limit, Window: window})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestAllowWithinLimit(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 1; i <= 5; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("attempt %d denied, want allowed", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Error("attempt 6 allowed, want denied")
	}
}

func TestAllowIsPerAddress(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 6; i++ {
		l.Allow("10.0.0.1")
	}
	if !l.Allow("10.0.0.2") {
		t.Error("second address denied by first address's counter")
	}
}

func TestSuccessClearsCounter(t *testing.T) {
	l, _ := newTestLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		l.Allow("10.0.0.1")
	}
	l.Success("10.0.0.1")
	if !l.Allow("10.0.0.1") {
		t.Error("attempt after success denied, want counter cleared")
	}
}

func TestWindowRollover(t *testing.T) {
	l, now := newTestLimiter(5, time.Minute)

	for i := 0; i < 6; i++ {
		l.Allow("10.0.0.1")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("attempt within window allowed, want denied")
	}

	*now = now.Add(time.Minute)
	if !l.Allow("10.0.0.1") {
		t.Error("attempt after window rollover denied, want allowed")
	}
}

func TestZeroConfigUsesDefaults(t *testing.T) {
	l := New(Config{})
	if l.cfg.Limit != 5 || l.cfg.Window != time.Minute {
		t.Errorf("defaults = %d/%s, want 5/1m", l.cfg.Limit, l.cfg.Window)
	}
}

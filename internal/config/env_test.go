// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestParseString(t *testing.T) {
	t.Setenv("TEST_STR", "from-env")
	if got := ParseString("TEST_STR", "dflt"); got != "from-env" {
		t.Errorf("ParseString = %q, want from-env", got)
	}
	if got := ParseString("TEST_STR_ABSENT", "dflt"); got != "dflt" {
		t.Errorf("ParseString absent = %q, want dflt", got)
	}
	t.Setenv("TEST_STR_EMPTY", "")
	if got := ParseString("TEST_STR_EMPTY", "dflt"); got != "dflt" {
		t.Errorf("ParseString empty = %q, want dflt", got)
	}
}

func TestParseInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	if got := ParseInt("TEST_INT", 7); got != 42 {
		t.Errorf("ParseInt = %d, want 42", got)
	}
	t.Setenv("TEST_INT_BAD", "not-a-number")
	if got := ParseInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("ParseInt invalid = %d, want default 7", got)
	}
}

func TestParseBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	if !ParseBool("TEST_BOOL", false) {
		t.Error("ParseBool(true) = false")
	}
	t.Setenv("TEST_BOOL_BAD", "yep")
	if ParseBool("TEST_BOOL_BAD", false) {
		t.Error("ParseBool invalid should fall back to default")
	}
}

func TestParseDuration(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	if got := ParseDuration("TEST_DUR", time.Minute); got != 90*time.Second {
		t.Errorf("ParseDuration = %s, want 90s", got)
	}
	t.Setenv("TEST_DUR_BAD", "ninety")
	if got := ParseDuration("TEST_DUR_BAD", time.Minute); got != time.Minute {
		t.Errorf("ParseDuration invalid = %s, want default 1m", got)
	}
}

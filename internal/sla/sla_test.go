package sla

import (
	"testing"
	"time"
)

func TestSeverityFor(t *testing.T) {
	response := 5 * time.Minute
	critical := 10 * time.Minute

	cases := []struct {
		age  time.Duration
		want int
	}{
		{0, LevelNone},
		{4 * time.Minute, LevelNone},
		{5 * time.Minute, LevelUrgent},
		{9 * time.Minute, LevelUrgent},
		{10 * time.Minute, LevelCritical},
		{time.Hour, LevelCritical},
	}

	for _, tc := range cases {
		if got := SeverityFor(tc.age, response, critical); got != tc.want {
			t.Fatalf("age %s: expected level %d, got %d", tc.age, tc.want, got)
		}
	}
}

func TestSeverityName(t *testing.T) {
	if got := SeverityName(LevelUrgent); got != "urgent" {
		t.Fatalf("expected urgent, got %s", got)
	}
	if got := SeverityName(LevelCritical); got != "critical" {
		t.Fatalf("expected critical, got %s", got)
	}
	if got := SeverityName(LevelNone); got != "none" {
		t.Fatalf("expected none, got %s", got)
	}
}

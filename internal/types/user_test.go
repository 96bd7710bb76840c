package types

import (
	"testing"
	"time"
)

func TestAddPoints_LevelNeverDecreases(t *testing.T) {
	u := &User{Points: 0, Level: 1}
	if u.AddPoints(50) {
		t.Fatalf("50 points must not level up")
	}
	if !u.AddPoints(60) {
		t.Fatalf("crossing %d points must level up", PointsPerLevel)
	}
	if u.Level != 2 {
		t.Fatalf("expected level 2, got %d", u.Level)
	}

	// A manually boosted level stays put even if points say otherwise.
	u2 := &User{Points: 0, Level: 5}
	if u2.AddPoints(10) {
		t.Fatalf("points below the level must not report a level up")
	}
	if u2.Level != 5 {
		t.Fatalf("level must never decrease, got %d", u2.Level)
	}
}

func TestApplyProgress_ClampsAndStaysComplete(t *testing.T) {
	now := time.Now()
	p := &UserProgress{}
	if p.ApplyProgress(150, now) != true {
		t.Fatalf("clamped 150 reaches 100 and crosses completion")
	}
	if p.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %v", p.Progress)
	}

	p.Completed = true
	if p.ApplyProgress(10, now) {
		t.Fatalf("a completed record never crosses again")
	}
	if p.Progress != 100 {
		t.Fatalf("completed progress must hold at 100, got %v", p.Progress)
	}

	q := &UserProgress{}
	if q.ApplyProgress(-5, now) {
		t.Fatalf("negative input clamps to 0, no completion")
	}
	if q.Progress != 0 {
		t.Fatalf("expected clamp to 0, got %v", q.Progress)
	}
}

func TestDetectDeviceType(t *testing.T) {
	cases := map[string]string{
		"Mozilla/5.0 (iPhone; CPU iPhone OS) Mobile/15E148": "mobile",
		"Mozilla/5.0 (iPad; CPU OS 16_0)":                   "tablet",
		"Mozilla/5.0 (X11; Linux x86_64)":                   "desktop",
		"": "desktop",
	}
	for ua, want := range cases {
		if got := DetectDeviceType(ua); got != want {
			t.Fatalf("DetectDeviceType(%q) = %q, want %q", ua, got, want)
		}
	}
}

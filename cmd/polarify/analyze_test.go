package main

import (
	"strings"
	"testing"
)

func TestScanLines(t *testing.T) {
	in := "Great product\n\n   \n  Terrible support  \nok\n"
	lines, err := scanLines(strings.NewReader(in))
	if err != nil {
		t.Fatalf("scanLines: %v", err)
	}
	want := []string{"Great product", "Terrible support", "ok"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a  b\nc", 10); got != "a b c" {
		t.Errorf("whitespace not collapsed: %q", got)
	}
	got := truncate(strings.Repeat("é", 20), 10)
	if got != strings.Repeat("é", 7)+"..." {
		t.Errorf("truncate long = %q", got)
	}
}

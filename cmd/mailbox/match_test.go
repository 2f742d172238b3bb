package main

import (
	"bytes"
	"encoding/json"
	"testing"
)

func runMatch(t *testing.T, args ...string) map[string]any {
	t.Helper()

	cmd := matchCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("match %v: %v", args, err)
	}

	var got map[string]any
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output %q: %v", out.String(), err)
	}
	return got
}

func TestMatchCmd(t *testing.T) {
	got := runMatch(t, "-s", "payment", "-s", "pricing", "bhai", "payment", "ho", "gaya?")
	if got["matched"] != true || got["shortcut"] != "payment" || got["match_type"] != "exact" {
		t.Fatalf("unexpected output %v", got)
	}

	got = runMatch(t, "-s", "payment", "hello there")
	if got["matched"] != false {
		t.Fatalf("expected no match, got %v", got)
	}
}

func TestMatchCmd_RequiresShortcut(t *testing.T) {
	cmd := matchCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"hello"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without shortcuts")
	}
}

func TestCandidates(t *testing.T) {
	replies := candidates([]string{"a", "b"})
	if len(replies) != 2 || replies[0].ID != "1" || replies[1].Shortcut != "b" || !replies[1].IsActive {
		t.Fatalf("unexpected candidates %+v", replies)
	}
}

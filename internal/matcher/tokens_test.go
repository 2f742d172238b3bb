package matcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"bhai payment ho gaya?", []string{"bhai", "payment", "ho", "gaya"}},
		{"  multiple   spaces\tand\nlines ", []string{"multiple", "spaces", "and", "lines"}},
		{"what ? is !! this", []string{"what", "is", "this"}},
		{"e-mail order_id", []string{"email", "order_id"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		if got := tokenize(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeywords(t *testing.T) {
	stop := DefaultStopwords()

	got := keywords("Kya payment ho gaya? PAYMENT! e-mail", stop, MinKeywordLength)
	want := []string{"payment", "gaya", "mail"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keywords = %q, want %q", got, want)
	}

	if got := keywords("what is the", stop, MinKeywordLength); len(got) != 0 {
		t.Errorf("expected only stopwords to be dropped, got %q", got)
	}
}

func TestDefaultStopwords(t *testing.T) {
	sw := DefaultStopwords()
	for _, w := range []string{"the", "which", "kya", "hai", "abhi", "yeh"} {
		if !sw.Contains(w) {
			t.Errorf("expected %q in default stopwords", w)
		}
	}
	if sw.Contains("payment") {
		t.Error("payment must not be a stopword")
	}
}

func TestParseStopwords(t *testing.T) {
	sw, err := ParseStopwords(strings.NewReader("# comment\n\nFoo\n  bar  \n"))
	if err != nil {
		t.Fatalf("ParseStopwords: %v", err)
	}
	if len(sw) != 2 || !sw.Contains("foo") || !sw.Contains("bar") {
		t.Errorf("unexpected set %v", sw)
	}
}

func TestLoadStopwords_MissingFile(t *testing.T) {
	if _, err := LoadStopwords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStopwordWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	if err := os.WriteFile(path, []byte("alpha\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewDefault()
	w, err := NewStopwordWatcher(path, m, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewStopwordWatcher: %v", err)
	}
	if !m.Stopwords().Contains("alpha") || m.Stopwords().Contains("the") {
		t.Fatal("expected file contents to replace the default set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(path, []byte("alpha\nbeta\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !m.Stopwords().Contains("beta") {
		if time.Now().After(deadline) {
			t.Fatal("stopwords were not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

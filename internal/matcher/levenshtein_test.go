package matcher

import "testing"

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"paymet", "payment", 1},
		{"pricing", "pricing", 0},
		{"قیمت", "قمت", 1},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	words := []string{"", "a", "payment", "paymet", "pricing", "away", "sunday", "saturday", "قیمت"}
	for _, a := range words {
		if d := Distance(a, a); d != 0 {
			t.Errorf("Distance(%q, %q) = %d, want 0", a, a, d)
		}
		for _, b := range words {
			if Distance(a, b) != Distance(b, a) {
				t.Errorf("Distance not symmetric for %q, %q", a, b)
			}
		}
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("", ""); got != 1.0 {
		t.Errorf("Similarity of empty strings = %v, want 1", got)
	}
	if got := Similarity("abc", "xyz"); got != 0 {
		t.Errorf("Similarity(abc, xyz) = %v, want 0", got)
	}
	want := 1 - 1.0/7.0
	if got := Similarity("paymet", "payment"); !approxEqual(got, want) {
		t.Errorf("Similarity(paymet, payment) = %v, want %v", got, want)
	}
}

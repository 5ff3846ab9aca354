package budget

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		parts []string
		want  int
	}{
		{nil, 0},
		{[]string{""}, 0},
		{[]string{"a"}, 1},
		{[]string{"abcd"}, 1},
		{[]string{"abcde"}, 2},
		{[]string{"system", "user message", "abc"}, 6},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.parts...); got != c.want {
			t.Fatalf("EstimateTokens(%q) = %d, want %d", c.parts, got, c.want)
		}
	}
}

func TestContextWindow(t *testing.T) {
	cases := map[string]int{
		"":                DefaultContextWindow,
		"gpt-4o":          128_000,
		"LLAMA-3.1":       128_000,
		" bart-large-cnn": 1_024,
		"mystery-512k":    512_000,
		"mystery-2m":      2_000_000,
		"something-mini":  128_000,
		"unknown":         DefaultContextWindow,
	}
	for name, want := range cases {
		if got := ContextWindow(name); got != want {
			t.Fatalf("ContextWindow(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestHeadroom(t *testing.T) {
	if got := Headroom("t5-small"); got != 32 {
		t.Fatalf("small windows keep the 32 floor, got %d", got)
	}
	if got := Headroom("bart-large-cnn"); got != 52 {
		t.Fatalf("bart-large-cnn headroom = %d, want 52", got)
	}
	if got := Headroom("gpt-4o"); got != 6400 {
		t.Fatalf("gpt-4o headroom = %d, want 6400", got)
	}
}

func TestFits(t *testing.T) {
	if !Fits("gpt-4o", 60_000, 200) {
		t.Fatal("half the window should fit")
	}
	if Fits("gpt-4o", 128_000, 1) {
		t.Fatal("full window should not fit")
	}
	// A default 500-word chunk with a 200-token summary fits a 1k window.
	if !Fits("bart-large-cnn", 700, 200) {
		t.Fatal("default chunk should fit a 1k window")
	}
	if Fits("bart-large-cnn", 900, 200) {
		t.Fatal("expected overflow for small-context model")
	}
	if !Fits("bart-large-cnn", 250, 125) {
		t.Fatal("short chunk should fit a 1k window")
	}
}

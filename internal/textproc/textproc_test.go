package textproc

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func TestClean(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "a \n\t b\r\n\nc", "a b c"},
		{"strips citations", "Pasta[1] is great[citation needed].", "Pasta is great."},
		{"non-greedy brackets", "x [a] y [b] z", "x  y  z"},
		{"trims", "   padded   ", "padded"},
		{"empty", "", ""},
		{"only annotation", "[edit]", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Clean(tc.in); got != tc.want {
				t.Fatalf("Clean(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := Split("", 10); len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
	if got := Split("  \n\t ", 10); len(got) != 0 {
		t.Fatalf("expected no chunks for whitespace, got %d", len(got))
	}
}

func TestSplit_FiveThousandWords(t *testing.T) {
	words := make([]string, 5000)
	for i := range words {
		words[i] = "w"
	}
	chunks := Split(strings.Join(words, " "), 500)
	if len(chunks) != 10 {
		t.Fatalf("chunks=%d, want 10", len(chunks))
	}
	if last := chunks[len(chunks)-1]; len(last) > 500 {
		t.Fatalf("last chunk has %d words", len(last))
	}
}

func TestSplit_ShortLastChunk(t *testing.T) {
	chunks := Split("a b c d e f g", 3)
	if len(chunks) != 3 {
		t.Fatalf("chunks=%d, want 3", len(chunks))
	}
	if got := chunks[2].Text(); got != "g" {
		t.Fatalf("last chunk = %q", got)
	}
	if got := chunks[0].Text(); got != "a b c" {
		t.Fatalf("first chunk = %q", got)
	}
}

func TestSplit_DefaultSize(t *testing.T) {
	text := strings.Repeat("word ", DefaultChunkSize+1)
	chunks := Split(text, 0)
	if len(chunks) != 2 || len(chunks[0]) != DefaultChunkSize {
		t.Fatalf("unexpected default chunking: %d chunks", len(chunks))
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"cozy", "Italian", "restaurant", "London", "family", "[1]", "pasta,", "—", "ñoquis"}
	seps := []string{" ", "  ", "\n", "\t", " \n "}
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(60)
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteString(seps[rng.Intn(len(seps))])
			b.WriteString(vocab[rng.Intn(len(vocab))])
		}
		text := b.String()
		size := 1 + rng.Intn(7)
		chunks := Split(text, size)
		for i, c := range chunks {
			if len(c) == 0 || len(c) > size {
				t.Fatalf("chunk %d has %d words (size %d)", i, len(c), size)
			}
		}
		want := strings.Fields(text)
		got := Words(chunks)
		if len(want) == 0 && len(got) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round trip mismatch for size %d:\n got %v\nwant %v", size, got, want)
		}
	}
}

func TestChunkAppendDoesNotClobberNeighbour(t *testing.T) {
	chunks := Split("a b c d", 2)
	_ = append(chunks[0], "x")
	if chunks[1].Text() != "c d" {
		t.Fatalf("append on first chunk leaked into second: %q", chunks[1].Text())
	}
}

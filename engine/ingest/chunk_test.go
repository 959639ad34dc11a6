package ingest

import (
	"strings"
	"testing"
)

func TestChunkText_Empty(t *testing.T) {
	if got := ChunkText("", 800, 100); got != nil {
		t.Errorf("expected nil for empty text, got %d chunks", len(got))
	}
	if got := ChunkText("   \n\t  ", 800, 100); got != nil {
		t.Errorf("expected nil for whitespace-only text, got %d chunks", len(got))
	}
}

func TestChunkText_ShorterThanWindow(t *testing.T) {
	chunks := ChunkText("short contract text", 800, 100)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "short contract text" {
		t.Errorf("unexpected chunk text: %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 {
		t.Errorf("expected index 0, got %d", chunks[0].Index)
	}
}

func TestChunkText_WindowWalk(t *testing.T) {
	// 2500 chars, size 800, overlap 100: offsets 0, 700, 1400, 2100.
	text := strings.Repeat("a", 2500)
	chunks := ChunkText(text, 800, 100)

	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	wantLens := []int{800, 800, 800, 400}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: index %d", i, c.Index)
		}
		if len(c.Text) != wantLens[i] {
			t.Errorf("chunk %d: length %d, want %d", i, len(c.Text), wantLens[i])
		}
	}
}

func TestChunkText_Overlap(t *testing.T) {
	chunks := ChunkText("abcdefghij", 4, 2)
	want := []string{"abcd", "cdef", "efgh", "ghij", "ij"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, c := range chunks {
		if c.Text != want[i] {
			t.Errorf("chunk %d: %q, want %q", i, c.Text, want[i])
		}
	}
	// Consecutive chunks share the overlap region.
	for i := 0; i < len(chunks)-1; i++ {
		tail := chunks[i].Text[len(chunks[i].Text)-2:]
		if !strings.HasPrefix(chunks[i+1].Text, tail) {
			t.Errorf("chunk %d does not start with previous tail %q", i+1, tail)
		}
	}
}

func TestChunkText_NeverExceedsSize(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	for _, c := range ChunkText(text, 100, 20) {
		if len(c.Text) > 100 {
			t.Errorf("chunk %d length %d exceeds size", c.Index, len(c.Text))
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is whitespace-only", c.Index)
		}
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	text := strings.Repeat("the security deposit is due ", 100)
	a := ChunkText(text, 120, 30)
	b := ChunkText(text, 120, 30)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkText_SkipsBlankWindows(t *testing.T) {
	// A window of pure whitespace in the middle must be skipped while
	// keeping emitted indices contiguous.
	text := "abcd" + strings.Repeat(" ", 4) + "efgh"
	chunks := ChunkText(text, 4, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
	}
}

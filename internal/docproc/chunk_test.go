package docproc

import (
	"strings"
	"testing"
)

func TestChunkShortText(t *testing.T) {
	got := Chunk("a short document", 1000, 200)
	if len(got) != 1 || got[0] != "a short document" {
		t.Fatalf("Chunk() = %v, want single chunk with full text", got)
	}
}

func TestChunkEmptyAndWhitespace(t *testing.T) {
	if got := Chunk("", 1000, 200); got != nil {
		t.Errorf("Chunk(empty) = %v, want nil", got)
	}
	if got := Chunk("   \n\n   ", 1000, 200); got != nil {
		t.Errorf("Chunk(whitespace) = %v, want nil", got)
	}
}

func TestChunkOverlap(t *testing.T) {
	text := strings.Repeat("x", 250)
	got := Chunk(text, 100, 20)

	if len(got) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(got))
	}
	// With no boundaries to seek, each chunk is full size and the tail of
	// one chunk reappears at the head of the next.
	if got[0] != strings.Repeat("x", 100) {
		t.Errorf("first chunk length = %d, want 100", len(got[0]))
	}
	if !strings.HasPrefix(got[1], strings.Repeat("x", 20)) {
		t.Error("second chunk missing overlap prefix")
	}
}

func TestChunkPrefersParagraphBoundary(t *testing.T) {
	para1 := strings.Repeat("a", 80)
	para2 := strings.Repeat("b", 80)
	text := para1 + "\n\n" + para2

	got := Chunk(text, 100, 10)

	if len(got) == 0 {
		t.Fatal("Chunk() returned no chunks")
	}
	if got[0] != para1 {
		t.Errorf("first chunk = %q, want the first paragraph", got[0])
	}
}

func TestChunkFallsBackToSentenceBoundary(t *testing.T) {
	sent1 := strings.Repeat("a", 78) + ". "
	sent2 := strings.Repeat("b", 80)
	text := sent1 + sent2

	got := Chunk(text, 100, 10)

	if len(got) == 0 {
		t.Fatal("Chunk() returned no chunks")
	}
	if want := strings.TrimSpace(sent1); got[0] != want {
		t.Errorf("first chunk = %q, want %q", got[0], want)
	}
}

func TestChunkIgnoresEarlyBoundary(t *testing.T) {
	// A boundary before the midpoint must not shrink the chunk.
	text := strings.Repeat("a", 10) + ". " + strings.Repeat("b", 200)
	got := Chunk(text, 100, 10)

	if len(got[0]) != 100 {
		t.Errorf("first chunk length = %d, want full 100 despite early boundary", len(got[0]))
	}
}

func TestChunkDefaults(t *testing.T) {
	text := strings.Repeat("x", 1500)
	got := Chunk(text, 0, -1)

	if len(got) != 2 {
		t.Fatalf("got %d chunks with defaults, want 2", len(got))
	}
	if len(got[0]) != DefaultChunkSize {
		t.Errorf("first chunk length = %d, want %d", len(got[0]), DefaultChunkSize)
	}
}

func TestChunkTerminates(t *testing.T) {
	// Overlap equal to chunk size must not stall the scan.
	text := strings.Repeat("x", 500)
	got := Chunk(text, 50, 50)
	if len(got) == 0 {
		t.Fatal("Chunk() returned no chunks")
	}
	for _, c := range got {
		if len(c) > 50 {
			t.Fatalf("chunk length %d exceeds size 50", len(c))
		}
	}
}

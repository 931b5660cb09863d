package chunker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

const scenarioText = "Revenue grew 5% to $97.3B. EPS was $1.53, up 9%. CEO: 'We are cautious about next quarter.'"

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.maxSize != DefaultMaxSize {
			t.Errorf("expected maxSize %d, got %d", DefaultMaxSize, p.maxSize)
		}
		if p.minSize != DefaultMinSize {
			t.Errorf("expected minSize %d, got %d", DefaultMinSize, p.minSize)
		}
		if p.overlap != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.overlap)
		}
	})

	t.Run("custom options", func(t *testing.T) {
		p := New(WithMaxSize(500), WithMinSize(100), WithOverlap(50))
		if p.maxSize != 500 || p.minSize != 100 || p.overlap != 50 {
			t.Errorf("unexpected processor %+v", p)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", New().Name())
	}
}

func TestChunk_InvalidBounds(t *testing.T) {
	tests := []struct {
		name                      string
		maxSize, minSize, overlap int
	}{
		{"min greater than max", 100, 200, 10},
		{"zero max", 0, 0, 0},
		{"negative min", 100, -1, 10},
		{"overlap equals max", 100, 10, 100},
		{"negative overlap", 100, 10, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk("t", "some text", tt.maxSize, tt.minSize, tt.overlap)
			if !errors.Is(err, domain.ErrChunking) {
				t.Errorf("expected ErrChunking, got %v", err)
			}
		})
	}
}

func TestChunk_EmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		_, err := Chunk("t", text, 100, 10, 5)
		if !errors.Is(err, domain.ErrChunking) {
			t.Errorf("expected ErrChunking for %q, got %v", text, err)
		}
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	chunks, err := Chunk("t", "Short transcript.", 100, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "Short transcript." || chunks[0].Start != 0 || chunks[0].End != 17 {
		t.Errorf("unexpected chunk %+v", chunks[0])
	}
}

func TestChunk_Scenario(t *testing.T) {
	chunks, err := Chunk("AAPL_Q3", scenarioText, 50, 20, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start >= chunks[i-1].End {
			t.Errorf("chunks %d and %d do not overlap", i-1, i)
		}
	}
	if !strings.Contains(chunks[0].Text, "Revenue grew 5%") {
		t.Errorf("expected first chunk to hold the revenue sentence, got %q", chunks[0].Text)
	}
}

func TestChunk_Invariants(t *testing.T) {
	text := buildTranscript()
	maxSize, minSize, overlap := 300, 120, 40

	chunks, err := Chunk("t", text, maxSize, minSize, overlap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	if chunks[0].Start != 0 {
		t.Errorf("first chunk must start at 0, got %d", chunks[0].Start)
	}
	if chunks[len(chunks)-1].End != len(text) {
		t.Errorf("last chunk must end at %d, got %d", len(text), chunks[len(chunks)-1].End)
	}

	for i, c := range chunks {
		if c.Text == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if c.Text != text[c.Start:c.End] {
			t.Errorf("chunk %d text does not match its span", i)
		}
		if c.Ordinal != i {
			t.Errorf("chunk %d has ordinal %d", i, c.Ordinal)
		}
		if i < len(chunks)-1 && (c.Len() < minSize || c.Len() > maxSize) {
			t.Errorf("chunk %d length %d outside [%d, %d]", i, c.Len(), minSize, maxSize)
		}
		if i > 0 {
			prev := chunks[i-1]
			if c.Start > prev.End {
				t.Errorf("gap between chunk %d and %d", i-1, i)
			}
			if got := prev.End - c.Start; got <= 0 || got > overlap {
				t.Errorf("chunk %d overlaps previous by %d, expected (0, %d]", i, got, overlap)
			}
			if b := text[c.Start-1]; b != ' ' && b != '\n' {
				t.Errorf("chunk %d starts mid-word at %d", i, c.Start)
			}
		}
	}
}

func TestChunk_PrefersParagraphBoundaries(t *testing.T) {
	para1 := strings.Repeat("a", 60) + " end."
	para2 := strings.Repeat("b", 60) + " end."
	text := para1 + "\n\n" + para2

	chunks, err := Chunk("t", text, 100, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[1].Text != para2 {
		t.Errorf("expected split at paragraph break, got %q", chunks[1].Text)
	}
}

func TestChunk_Deterministic(t *testing.T) {
	text := buildTranscript()

	first, err := Chunk("t", text, 250, 100, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Chunk("t", text, 250, 100, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunk_HardCutWithoutBoundaries(t *testing.T) {
	text := strings.Repeat("x", 250)

	chunks, err := Chunk("t", text, 100, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks[0].Len() != 100 {
		t.Errorf("expected hard cut at max size, got %d", chunks[0].Len())
	}
}

func TestChunk_MultiByteText(t *testing.T) {
	text := strings.Repeat("Umsatz wächst – €97,3 Mrd. ", 20)

	chunks, err := Chunk("t", text, 80, 30, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if !strings.HasPrefix(text[c.Start:], c.Text) {
			t.Errorf("chunk %d span mismatch", i)
		}
		if !isValidUTF8(c.Text) {
			t.Errorf("chunk %d splits a multi-byte character", i)
		}
	}
}

func TestChunk_OverlapStartsAtWord(t *testing.T) {
	text := "alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu"

	chunks, err := Chunk("t", text, 30, 20, 8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		c, prev := chunks[i], chunks[i-1]
		if c.Start >= prev.End {
			t.Errorf("chunk %d does not overlap chunk %d", i, i-1)
		}
		if text[c.Start-1] != ' ' || text[c.Start] == ' ' {
			t.Errorf("chunk %d starts mid-word: %q", i, c.Text)
		}
	}
}

func TestChunk_OverlapInsideLongWordKeepsOffset(t *testing.T) {
	text := strings.Repeat("x", 250)

	chunks, err := Chunk("t", text, 100, 50, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := chunks[0].End - chunks[1].Start; got != 10 {
		t.Errorf("expected overlap 10 inside an unbroken word, got %d", got)
	}
}

func TestChunk_WindowNarrowerThanRune(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := Chunk("t", strings.Repeat("€", 10), 2, 0, 0)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrChunking) {
			t.Errorf("expected ErrChunking, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("chunking did not terminate")
	}
}

func TestChunk_MultiByteHardCutRespectsMinSize(t *testing.T) {
	text := strings.Repeat("é", 100)

	chunks, err := Chunk("t", text, 60, 51, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks[:len(chunks)-1] {
		if c.Len() < 51 || c.Len() > 60 {
			t.Errorf("chunk %d length %d outside [51, 60]", i, c.Len())
		}
		if !isValidUTF8(c.Text) {
			t.Errorf("chunk %d splits a multi-byte character", i)
		}
	}
	if chunks[len(chunks)-1].End != len(text) {
		t.Errorf("chunks do not cover the text")
	}

	// min == max on an odd byte count has no rune-aligned cut.
	if _, err := Chunk("t", text, 51, 51, 10); !errors.Is(err, domain.ErrChunking) {
		t.Errorf("expected ErrChunking when no cut fits, got %v", err)
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithMaxSize(50), WithMinSize(20), WithOverlap(10))
	tr := &domain.Transcript{ID: "AAPL_Q3", Text: scenarioText}

	chunks, err := p.Process(context.Background(), tr, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range chunks {
		if c.TranscriptID != "AAPL_Q3" {
			t.Errorf("expected transcript id AAPL_Q3, got %q", c.TranscriptID)
		}
		if c.ID == "" {
			t.Error("expected chunk id to be set")
		}
	}

	if _, err := p.Process(context.Background(), nil, nil); !errors.Is(err, domain.ErrChunking) {
		t.Errorf("expected ErrChunking for nil transcript, got %v", err)
	}
}

func buildTranscript() string {
	var b strings.Builder
	speakers := []string{"Operator", "Tim Cook", "Luca Maestri", "Analyst"}
	for i := 0; i < 12; i++ {
		b.WriteString(speakers[i%len(speakers)])
		b.WriteString(": ")
		b.WriteString("Revenue for the quarter grew strongly across regions. ")
		b.WriteString("Gross margin expanded by 120 basis points year over year. ")
		b.WriteString("We remain cautious about the macro environment.")
		if i < 11 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func isValidUTF8(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}

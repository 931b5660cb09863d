package domain

// Chunk is a bounded, contiguous span of transcript text.
// Chunks are immutable after creation.
type Chunk struct {
	// ID uniquely identifies this chunk. Stable across rebuilds of the same transcript.
	ID string `json:"id"`

	// TranscriptID references the transcript this chunk belongs to.
	TranscriptID string `json:"transcript_id"`

	// Ordinal is the zero-based position of the chunk. Strictly increasing.
	Ordinal int `json:"ordinal"`

	// Text is the chunk content. Equal to the transcript text in [Start, End).
	Text string `json:"text"`

	// Start is the byte offset of the first character in the normalised transcript.
	Start int `json:"start"`

	// End is the byte offset one past the last character.
	End int `json:"end"`

	// Speaker is the speaker tag active at the start of the chunk, if known.
	Speaker string `json:"speaker,omitempty"`

	// Section is the transcript section the chunk was classified into, if known.
	Section string `json:"section,omitempty"`
}

// Len returns the length of the chunk text in bytes.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// OverlapWith returns the number of bytes shared by the two chunk spans.
func (c Chunk) OverlapWith(other Chunk) int {
	lo := max(c.Start, other.Start)
	hi := min(c.End, other.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// OverlapFraction returns the shared span as a fraction of the shorter chunk.
func (c Chunk) OverlapFraction(other Chunk) float64 {
	shorter := min(c.Len(), other.Len())
	if shorter <= 0 {
		return 0
	}
	return float64(c.OverlapWith(other)) / float64(shorter)
}

// Embedding is a fixed-dimension vector owned by a single chunk.
type Embedding []float32

package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// IndexEntry pairs a chunk with its embedding.
type IndexEntry struct {
	// Chunk is the indexed chunk.
	Chunk Chunk `json:"chunk"`

	// Embedding is the chunk's vector.
	Embedding Embedding `json:"embedding"`
}

// Index is the queryable set of embedded chunks for one transcript.
// It is read-only once constructed and safe for concurrent readers.
// A changed transcript produces a new Index; an Index is never mutated.
type Index struct {
	transcriptID string
	model        string
	fingerprint  string
	dimensions   int
	entries      []IndexEntry
	byID         map[string]int
}

// IndexSnapshot is the serialisable form of an Index used by caches.
type IndexSnapshot struct {
	// TranscriptID is the transcript the index was built for.
	TranscriptID string `json:"transcript_id"`

	// Model is the embedding model that produced the vectors.
	Model string `json:"model,omitempty"`

	// Fingerprint identifies the chunk sequence and model the index was built from.
	Fingerprint string `json:"fingerprint"`

	// Entries are the embedded chunks in ordinal order.
	Entries []IndexEntry `json:"entries"`
}

// NewIndex builds an index from fully embedded entries.
// Entries must have strictly increasing ordinals and equal, non-zero dimensions.
// The entries are copied so later changes by the caller are not observed.
func NewIndex(transcriptID string, entries []IndexEntry) (*Index, error) {
	return NewModelIndex(transcriptID, "", entries)
}

// NewModelIndex builds an index whose vectors came from the named embedding model.
// The model is part of the fingerprint, so caches never hand an index to a
// different embedder.
func NewModelIndex(transcriptID, model string, entries []IndexEntry) (*Index, error) {
	idx := &Index{
		transcriptID: transcriptID,
		model:        model,
		entries:      make([]IndexEntry, len(entries)),
		byID:         make(map[string]int, len(entries)),
	}

	chunks := make([]Chunk, len(entries))
	for i, e := range entries {
		if len(e.Embedding) == 0 {
			return nil, fmt.Errorf("%w: chunk %s has no embedding", ErrInvalidInput, e.Chunk.ID)
		}
		if i == 0 {
			idx.dimensions = len(e.Embedding)
		} else {
			if len(e.Embedding) != idx.dimensions {
				return nil, fmt.Errorf("%w: chunk %s has %d dimensions, expected %d",
					ErrInvalidInput, e.Chunk.ID, len(e.Embedding), idx.dimensions)
			}
			if e.Chunk.Ordinal <= entries[i-1].Chunk.Ordinal {
				return nil, fmt.Errorf("%w: chunk ordinals must be strictly increasing", ErrInvalidInput)
			}
		}
		if _, dup := idx.byID[e.Chunk.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk id %s", ErrInvalidInput, e.Chunk.ID)
		}

		vec := make(Embedding, len(e.Embedding))
		copy(vec, e.Embedding)
		idx.entries[i] = IndexEntry{Chunk: e.Chunk, Embedding: vec}
		idx.byID[e.Chunk.ID] = i
		chunks[i] = e.Chunk
	}
	idx.fingerprint = IndexFingerprint(model, chunks)

	return idx, nil
}

// FromSnapshot restores an index from its serialised form.
// Returns an error if the snapshot does not match its recorded fingerprint.
func FromSnapshot(s IndexSnapshot) (*Index, error) {
	idx, err := NewModelIndex(s.TranscriptID, s.Model, s.Entries)
	if err != nil {
		return nil, err
	}
	if s.Fingerprint != "" && s.Fingerprint != idx.fingerprint {
		return nil, fmt.Errorf("%w: snapshot fingerprint mismatch", ErrInvalidInput)
	}
	return idx, nil
}

// Snapshot returns a serialisable copy of the index.
func (i *Index) Snapshot() IndexSnapshot {
	entries := make([]IndexEntry, len(i.entries))
	for n, e := range i.entries {
		vec := make(Embedding, len(e.Embedding))
		copy(vec, e.Embedding)
		entries[n] = IndexEntry{Chunk: e.Chunk, Embedding: vec}
	}
	return IndexSnapshot{
		TranscriptID: i.transcriptID,
		Model:        i.model,
		Fingerprint:  i.fingerprint,
		Entries:      entries,
	}
}

// TranscriptID returns the transcript the index belongs to.
func (i *Index) TranscriptID() string {
	return i.transcriptID
}

// Model returns the embedding model recorded for the index, if any.
func (i *Index) Model() string {
	return i.model
}

// Fingerprint returns the fingerprint of the indexed chunk sequence and model.
func (i *Index) Fingerprint() string {
	return i.fingerprint
}

// Dimensions returns the embedding dimensionality, or 0 for an empty index.
func (i *Index) Dimensions() int {
	return i.dimensions
}

// Len returns the number of indexed chunks.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Entry returns the entry at position n. Callers must not modify the embedding.
func (i *Index) Entry(n int) IndexEntry {
	return i.entries[n]
}

// Chunk looks up a chunk by ID.
func (i *Index) Chunk(id string) (Chunk, bool) {
	n, ok := i.byID[id]
	if !ok {
		return Chunk{}, false
	}
	return i.entries[n].Chunk, true
}

// Chunks returns the indexed chunks in ordinal order.
func (i *Index) Chunks() []Chunk {
	out := make([]Chunk, len(i.entries))
	for n, e := range i.entries {
		out[n] = e.Chunk
	}
	return out
}

// Fingerprint hashes the ids and spans of a chunk sequence.
// Two sequences with the same fingerprint produce equivalent indexes.
func Fingerprint(chunks []Chunk) string {
	return IndexFingerprint("", chunks)
}

// IndexFingerprint hashes a chunk sequence together with the embedding model.
// An empty model yields the plain chunk Fingerprint.
func IndexFingerprint(model string, chunks []Chunk) string {
	h := sha256.New()
	if model != "" {
		h.Write([]byte("model:" + model))
		h.Write([]byte{0})
	}
	for _, c := range chunks {
		h.Write([]byte(c.ID))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(c.Start) + ":" + strconv.Itoa(c.End)))
		h.Write([]byte{0})
		h.Write([]byte(c.Text))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

var _ driven.IndexCache = (*IndexCache)(nil)

// IndexCache persists complete indexes across runs.
// Embeddings are stored as little-endian float32 blobs, one row per chunk.
type IndexCache struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

// Get returns the cached index for a transcript if its fingerprint matches
// and it has not expired. Expired entries are removed on read.
func (c *IndexCache) Get(ctx context.Context, transcriptID, fingerprint string) (*domain.Index, error) {
	var (
		storedFingerprint string
		model             string
		expiresAt         time.Time
	)
	err := c.store.db.QueryRowContext(ctx, `
		SELECT fingerprint, model, expires_at FROM index_cache WHERE transcript_id = ?
	`, transcriptID).Scan(&storedFingerprint, &model, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("querying index cache: %w", err)
	}

	if c.ttl > 0 && !c.now().Before(expiresAt) {
		if err := c.Evict(ctx, transcriptID); err != nil {
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	if storedFingerprint != fingerprint {
		return nil, domain.ErrNotFound
	}

	rows, err := c.store.db.QueryContext(ctx, `
		SELECT chunk, embedding FROM index_cache_entries
		WHERE transcript_id = ? ORDER BY ordinal
	`, transcriptID)
	if err != nil {
		return nil, fmt.Errorf("querying index entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		var (
			chunkJSON string
			blob      []byte
		)
		if err := rows.Scan(&chunkJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning index entry: %w", err)
		}
		var entry domain.IndexEntry
		if err := json.Unmarshal([]byte(chunkJSON), &entry.Chunk); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk: %w", err)
		}
		entry.Embedding = bytesToFloat32Slice(blob)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading index entries: %w", err)
	}

	return domain.FromSnapshot(domain.IndexSnapshot{
		TranscriptID: transcriptID,
		Model:        model,
		Fingerprint:  storedFingerprint,
		Entries:      entries,
	})
}

// Put stores a complete index, replacing any previous entry for the transcript.
func (c *IndexCache) Put(ctx context.Context, idx *domain.Index) error {
	if idx == nil {
		return fmt.Errorf("%w: index is nil", domain.ErrInvalidInput)
	}
	snap := idx.Snapshot()

	expiresAt := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if c.ttl > 0 {
		expiresAt = c.now().Add(c.ttl).UTC()
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting index cache write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_cache WHERE transcript_id = ?`, snap.TranscriptID); err != nil {
		return fmt.Errorf("replacing cached index: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_cache (transcript_id, fingerprint, model, dimensions, expires_at) VALUES (?, ?, ?, ?, ?)
	`, snap.TranscriptID, snap.Fingerprint, snap.Model, idx.Dimensions(), expiresAt); err != nil {
		return fmt.Errorf("caching index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_cache_entries (transcript_id, ordinal, chunk, embedding) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing index entries: %w", err)
	}
	defer stmt.Close()

	for _, e := range snap.Entries {
		chunkJSON, err := json.Marshal(e.Chunk)
		if err != nil {
			return fmt.Errorf("marshalling chunk: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, snap.TranscriptID, e.Chunk.Ordinal,
			string(chunkJSON), float32SliceToBytes(e.Embedding)); err != nil {
			return fmt.Errorf("caching index entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cached index: %w", err)
	}
	return nil
}

// Evict removes the transcript's index, if cached.
func (c *IndexCache) Evict(ctx context.Context, transcriptID string) error {
	if _, err := c.store.db.ExecContext(ctx, `DELETE FROM index_cache WHERE transcript_id = ?`, transcriptID); err != nil {
		return fmt.Errorf("evicting cached index: %w", err)
	}
	return nil
}

// Prune removes every expired index and returns how many were removed.
func (c *IndexCache) Prune(ctx context.Context) (int, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	res, err := c.store.db.ExecContext(ctx, `DELETE FROM index_cache WHERE expires_at <= ?`, c.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning index cache: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driven"
)

// bundleStore implements driven.BundleStore.
// The bundle is stored whole as JSON; listing columns are kept alongside.
type bundleStore struct {
	store *Store
}

var _ driven.BundleStore = (*bundleStore)(nil)

// Save inserts or replaces a bundle by ID.
func (s *bundleStore) Save(ctx context.Context, bundle *domain.AnalysisBundle) error {
	if bundle == nil || bundle.ID == "" {
		return fmt.Errorf("%w: bundle id is required", domain.ErrInvalidInput)
	}

	payload, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("marshalling bundle: %w", err)
	}

	createdAt := bundle.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	failed := make([]string, 0, 3)
	for _, t := range bundle.FailedTiers() {
		failed = append(failed, string(t))
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO bundles (id, request_id, transcript_id, ticker, period, state, failed_tiers, payload, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			request_id = excluded.request_id,
			transcript_id = excluded.transcript_id,
			ticker = excluded.ticker,
			period = excluded.period,
			state = excluded.state,
			failed_tiers = excluded.failed_tiers,
			payload = excluded.payload,
			created_at = excluded.created_at,
			completed_at = excluded.completed_at
	`, bundle.ID, bundle.RequestID, bundle.TranscriptID, bundle.Ticker, bundle.Period,
		string(bundle.State), strings.Join(failed, ","), string(payload),
		createdAt.UTC(), nullTime(bundle.CompletedAt))
	if err != nil {
		return fmt.Errorf("saving bundle: %w", err)
	}
	return nil
}

// Get retrieves a bundle by ID.
func (s *bundleStore) Get(ctx context.Context, id string) (*domain.AnalysisBundle, error) {
	var payload string
	err := s.store.db.QueryRowContext(ctx, `SELECT payload FROM bundles WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: bundle %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying bundle: %w", err)
	}
	return decodeBundle(payload)
}

// List returns stored bundles, newest first. A non-positive limit returns all.
func (s *bundleStore) List(ctx context.Context, limit int) ([]domain.AnalysisBundle, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT payload FROM bundles
		ORDER BY created_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying bundles: %w", err)
	}
	defer rows.Close()

	var bundles []domain.AnalysisBundle
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning bundle: %w", err)
		}
		b, err := decodeBundle(payload)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, *b)
	}
	return bundles, rows.Err()
}

// Delete removes a bundle by ID.
func (s *bundleStore) Delete(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `DELETE FROM bundles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting bundle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting bundle: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: bundle %s", domain.ErrNotFound, id)
	}
	return nil
}

func decodeBundle(payload string) (*domain.AnalysisBundle, error) {
	var b domain.AnalysisBundle
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, fmt.Errorf("unmarshalling bundle: %w", err)
	}
	return &b, nil
}

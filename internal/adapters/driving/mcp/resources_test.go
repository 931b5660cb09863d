package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

func TestExtractBundleID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{"valid uri", "bundle://ACME_Q3-2025", "ACME_Q3-2025"},
		{"empty id", "bundle://", ""},
		{"nested path", "bundle://ACME/extra", ""},
		{"wrong scheme", "http://ACME_Q3-2025", ""},
		{"no scheme", "ACME_Q3-2025", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractBundleID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleBundleResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns bundle as json", func(t *testing.T) {
		mockBundles := &mockBundleService{bundle: testBundle()}
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Bundles: mockBundles})
		require.NoError(t, err)

		req := makeReadResourceRequest("bundle://ACME_Q3-2025")
		result, err := server.handleBundleResource(ctx, req)

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Equal(t, "bundle://ACME_Q3-2025", result.Contents[0].URI)
		assert.Contains(t, result.Contents[0].Text, `"id": "ACME_Q3-2025"`)
		assert.Contains(t, result.Contents[0].Text, "Cloud revenue beat guidance")
	})

	t.Run("nil bundle service is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}})
		require.NoError(t, err)

		_, err = server.handleBundleResource(ctx, makeReadResourceRequest("bundle://ACME_Q3-2025"))

		require.Error(t, err)
	})

	t.Run("unknown bundle is not found", func(t *testing.T) {
		mockBundles := &mockBundleService{err: domain.ErrNotFound}
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Bundles: mockBundles})
		require.NoError(t, err)

		_, err = server.handleBundleResource(ctx, makeReadResourceRequest("bundle://MISSING_Q1"))

		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("invalid uri is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Bundles: &mockBundleService{}})
		require.NoError(t, err)

		_, err = server.handleBundleResource(ctx, makeReadResourceRequest("bundle://a/b"))

		require.Error(t, err)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		mockBundles := &mockBundleService{err: errors.New("disk full")}
		server, err := NewServer(&Ports{Analysis: &mockAnalysisService{}, Bundles: mockBundles})
		require.NoError(t, err)

		_, err = server.handleBundleResource(ctx, makeReadResourceRequest("bundle://ACME_Q3-2025"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "getting bundle")
		assert.Contains(t, err.Error(), "disk full")
	})
}

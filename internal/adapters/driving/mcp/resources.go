package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

const (
	// uriScheme is the URI scheme for stored analysis bundles.
	uriScheme = "bundle://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "{id}",
		Name:        "analysis-bundle",
		Description: "A stored analysis bundle with all three tiers, as JSON",
		MIMEType:    "application/json",
	}, s.handleBundleResource)
}

// handleBundleResource returns a stored bundle by analysis ID.
func (s *Server) handleBundleResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Bundles == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	id := extractBundleID(req.Params.URI)
	if id == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	bundle, err := s.ports.Bundles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting bundle: %w", err)
	}

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling bundle: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// bundleURI returns the resource URI of a bundle.
func bundleURI(id string) string {
	return uriScheme + id
}

// extractBundleID extracts the analysis ID from a URI like bundle://{id}.
func extractBundleID(uri string) string {
	if !strings.HasPrefix(uri, uriScheme) {
		return ""
	}
	id := strings.TrimPrefix(uri, uriScheme)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

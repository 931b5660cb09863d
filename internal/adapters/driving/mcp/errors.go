// Package mcp provides an MCP (Model Context Protocol) server adapter for tldr.
// It lets AI assistants analyse earnings-call transcripts and read stored results.
package mcp

import "errors"

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("mcp: analysis service is required")

// Package domain defines the core entities of the transcript analysis pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Transcript: An ingested earnings-call transcript with ticker and period
//   - Chunk: A bounded span of transcript text used as the unit of retrieval
//   - Index: The read-only set of embedded chunks for one transcript
//   - TierFinding / MetricExtract: Grounded claims produced by the analyzer
//   - AnalysisBundle: The reconciled result of one analysis request
//   - TierContract: Per-tier generation and validation rules
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

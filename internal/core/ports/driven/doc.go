// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - EmbeddingService: Embeds chunks and retrieval queries into one vector space
//   - LLMService: Generates tier output from grounded prompts
//   - PromptStore: Supplies tier prompt templates
//   - ChunkProcessor: A stage of the chunking pipeline
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IndexCache: Cross-request index reuse. Without it every request rebuilds its index.
//   - BundleStore: Result persistence. Without it bundles are only returned to the caller.
//   - RateLimiter: Throttles external calls. Without it calls are unthrottled.
//   - ConfigStore: Application configuration. Without it defaults apply.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or driving package
package driven

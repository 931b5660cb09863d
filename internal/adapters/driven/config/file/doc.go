// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem under ~/.tldr.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: editable prompt templates with change watching
//   - LoadContracts / SaveContracts: YAML tier contract overrides
package file

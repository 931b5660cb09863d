package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
// Prompt names and defaults are defined by domain.DefaultPrompts.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Tier templates are Go text/template sources rendered with the tier's
	// contract and retrieved context.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

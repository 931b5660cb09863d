package domain

// CitationMode controls how ungrounded citations are treated.
type CitationMode string

// Citation modes.
const (
	// CitationStrict rejects output citing chunks that were not retrieved.
	CitationStrict CitationMode = "strict"

	// CitationWarn drops invalid citations, annotates the claim and logs a warning.
	CitationWarn CitationMode = "warn"
)

// OutputSchema names the structured shape a tier must produce.
type OutputSchema string

// Output schemas.
const (
	// SchemaFindings is a JSON list of findings with polarity, confidence and citations.
	SchemaFindings OutputSchema = "findings"

	// SchemaSummary is plain narrative text.
	SchemaSummary OutputSchema = "summary"

	// SchemaMetrics is a JSON list of metric extracts and risk findings.
	SchemaMetrics OutputSchema = "metrics"
)

// ContractQuery is one retrieval question of a tier.
type ContractQuery struct {
	// Label names the query. For Tier C it is the metric category.
	Label string `json:"label" yaml:"label" validate:"required"`

	// Text is the natural-language retrieval question.
	Text string `json:"text" yaml:"text" validate:"required"`
}

// TierContract declares the generation and validation rules of one tier.
// Contracts replace instructions embedded in prompt text: the prompt is
// rendered from the contract, and the validator enforces the same rules.
type TierContract struct {
	// Tier is the tier this contract governs.
	Tier Tier `json:"tier" yaml:"tier" validate:"required,oneof=A B C"`

	// Prompt is the prompt template name in the PromptStore.
	Prompt string `json:"prompt" yaml:"prompt" validate:"required"`

	// Schema is the required output shape.
	Schema OutputSchema `json:"schema" yaml:"schema" validate:"required,oneof=findings summary metrics"`

	// Queries are the retrieval questions, one generation per query for Tier C.
	Queries []ContractQuery `json:"queries" yaml:"queries" validate:"required,min=1,dive"`

	// TopK is the number of chunks retrieved per query.
	TopK int `json:"top_k" yaml:"top_k" validate:"min=1,max=50"`

	// Grounded requires every claim to cite at least one retrieved chunk.
	Grounded bool `json:"grounded" yaml:"grounded"`

	// CitationMode controls handling of citations to non-retrieved chunks.
	CitationMode CitationMode `json:"citation_mode" yaml:"citation_mode" validate:"required,oneof=strict warn"`

	// MinItems is the minimum number of findings or metrics. For Tier C it
	// counts the merged digest rather than each category.
	MinItems int `json:"min_items" yaml:"min_items" validate:"min=0"`

	// MaxItems is the maximum number of findings or metrics. Zero means
	// unbounded. For Tier C it bounds each category.
	MaxItems int `json:"max_items" yaml:"max_items" validate:"min=0"`

	// MinLength is the minimum summary length in characters.
	MinLength int `json:"min_length" yaml:"min_length" validate:"min=0"`

	// MaxLength is the maximum summary length in characters. Zero means unbounded.
	MaxLength int `json:"max_length" yaml:"max_length" validate:"min=0"`

	// VerifyNumbers requires every number in a metric to appear in a cited chunk.
	VerifyNumbers bool `json:"verify_numbers" yaml:"verify_numbers"`

	// Regenerations is the number of extra attempts after a validation failure.
	Regenerations int `json:"regenerations" yaml:"regenerations" validate:"min=0,max=3"`

	// MaxTokens bounds the generation length.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" validate:"min=1"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature" validate:"min=0,max=2"`
}

// Contracts holds the contract of every tier.
type Contracts struct {
	// A governs the causal findings.
	A TierContract `json:"tier_a" yaml:"tier_a"`

	// B governs the plain summary.
	B TierContract `json:"tier_b" yaml:"tier_b"`

	// C governs the expert digest.
	C TierContract `json:"tier_c" yaml:"tier_c"`
}

// For returns the contract of a tier.
func (c Contracts) For(t Tier) TierContract {
	switch t {
	case TierA:
		return c.A
	case TierB:
		return c.B
	default:
		return c.C
	}
}

// Prompt template names.
const (
	PromptTierA = "tier_a"
	PromptTierB = "tier_b"
	PromptTierC = "tier_c"
)

// DefaultContracts returns the built-in tier contracts.
func DefaultContracts() Contracts {
	return Contracts{
		A: TierContract{
			Tier:   TierA,
			Prompt: PromptTierA,
			Schema: SchemaFindings,
			Queries: []ContractQuery{{
				Label: "price_movers",
				Text: "price-moving factors: results versus expectations, beats and misses, " +
					"guidance changes, surprises and management tone",
			}},
			TopK:          6,
			Grounded:      true,
			CitationMode:  CitationStrict,
			MinItems:      4,
			MaxItems:      8,
			Regenerations: 1,
			MaxTokens:     2000,
			Temperature:   0.1,
		},
		B: TierContract{
			Tier:   TierB,
			Prompt: PromptTierB,
			Schema: SchemaSummary,
			Queries: []ContractQuery{{
				Label: "summary",
				Text:  "overall summary of the quarter: results, outlook and key announcements",
			}},
			TopK:          8,
			CitationMode:  CitationStrict,
			MinLength:     80,
			MaxLength:     2500,
			Regenerations: 1,
			MaxTokens:     1200,
			Temperature:   0.2,
		},
		C: TierContract{
			Tier:   TierC,
			Prompt: PromptTierC,
			Schema: SchemaMetrics,
			Queries: []ContractQuery{
				{Label: string(MetricRevenue), Text: "revenue, sales and earnings per share growth"},
				{Label: string(MetricMargins), Text: "gross margin, operating margin and profitability"},
				{Label: string(MetricGuidance), Text: "guidance, outlook and forecast for next quarter and full year"},
				{Label: string(MetricRisk), Text: "risks, headwinds, uncertainty and cautious commentary"},
			},
			TopK:          4,
			Grounded:      true,
			CitationMode:  CitationStrict,
			MinItems:      1,
			MaxItems:      8,
			VerifyNumbers: true,
			Regenerations: 1,
			MaxTokens:     2000,
			Temperature:   0.1,
		},
	}
}

package domain

// Prompt names shared by every tier.
const (
	// PromptSystem is the system instruction sent with every tier.
	PromptSystem = "system"
)

// DefaultPrompts returns the built-in prompt templates keyed by name.
// Tier templates are text/template sources; see services.PromptData for the fields.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptSystem: `You are an equity research analyst reading an earnings call transcript.
Use only the transcript excerpts you are given. Cite excerpts by their id exactly as shown in square brackets.
Never invent figures: every number you report must appear in an excerpt you cite.`,

		PromptTierA: `Explain why {{.Ticker}} stock moved after its {{.Period}} earnings call.
{{if .Market}}
MARKET DATA
After-hours move: {{printf "%+.2f" .Market.AfterHoursMove}}%
Next-day gap: {{printf "%+.2f" .Market.NextDayGap}}%
{{else}}
No market data is available. Reason from the transcript alone.
{{end}}
TRANSCRIPT EXCERPTS
{{range .Context}}[{{.ID}}]{{if .Speaker}} {{.Speaker}}:{{end}} {{.Text}}

{{end}}
Return JSON only, in this shape:
{"findings":[{"text":"one causal factor","polarity":"positive|negative|neutral","confidence":0.0,"chunk_ids":["excerpt id"]}]}

Rules:
- Give between {{.Contract.MinItems}} and {{.Contract.MaxItems}} findings, most important first.
- Each finding states one price-moving factor in one sentence.
- Each finding cites at least one excerpt id from the list above and no other ids.
- confidence is your certainty between 0 and 1.
{{range .Feedback}}
Your previous answer was rejected: {{.}}{{end}}`,

		PromptTierB: `Summarise the {{.Period}} earnings call of {{.Ticker}} for a reader with no finance background.
{{if .Market}}
The stock moved {{printf "%+.2f" .Market.AfterHoursMove}}% after hours and opened {{printf "%+.2f" .Market.NextDayGap}}% the next day.
{{end}}
TRANSCRIPT EXCERPTS
{{range .Context}}[{{.ID}}] {{.Text}}

{{end}}
Rules:
- Plain prose, no jargon, no bullet points, no excerpt ids.
- Between {{.Contract.MinLength}} and {{.Contract.MaxLength}} characters.
{{range .Feedback}}
Your previous answer was rejected: {{.}}{{end}}`,

		PromptTierC: `Extract {{.Label}} metrics from the {{.Period}} earnings call of {{.Ticker}}.
Focus: {{.Query}}

TRANSCRIPT EXCERPTS
{{range .Context}}[{{.ID}}]{{if .Section}} ({{.Section}}){{end}} {{.Text}}

{{end}}
Return JSON only, in this shape:
{"metrics":[{"name":"metric name","value":"figure as written","change":"change as written","polarity":"positive|negative|neutral","confidence":0.0,"chunk_ids":["excerpt id"]}],
 "risks":[{"text":"one risk","polarity":"negative","confidence":0.0,"chunk_ids":["excerpt id"]}]}

Rules:
- At most {{.Contract.MaxItems}} metrics and risks in total, at least {{.Contract.MinItems}}.
- Copy every number exactly as it appears in the excerpt you cite.
- Cite only excerpt ids from the list above.
{{range .Feedback}}
Your previous answer was rejected: {{.}}{{end}}`,
	}
}

package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

var fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json|JSON)?\\s*\\n?(.*?)\\n?\\s*```\\s*$")

// findingOutput is one generated finding or risk.
type findingOutput struct {
	Text       string   `json:"text" validate:"required"`
	Polarity   string   `json:"polarity" validate:"omitempty,oneof=positive negative neutral"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// metricOutput is one generated metric extract.
type metricOutput struct {
	Name       string   `json:"name" validate:"required"`
	Value      string   `json:"value" validate:"required"`
	Change     string   `json:"change"`
	Polarity   string   `json:"polarity" validate:"omitempty,oneof=positive negative neutral"`
	Confidence *float64 `json:"confidence" validate:"omitempty,gte=0,lte=1"`
	ChunkIDs   []string `json:"chunk_ids"`
}

// tierAOutput is the structured output of Tier A.
type tierAOutput struct {
	Findings []findingOutput `json:"findings" validate:"dive"`
}

// tierCOutput is the structured output of one Tier C category.
type tierCOutput struct {
	Metrics []metricOutput  `json:"metrics" validate:"dive"`
	Risks   []findingOutput `json:"risks" validate:"dive"`
}

// cleanJSON strips markdown fences and any prose around the JSON value.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return s[start:]
	}
	return s[start : end+1]
}

// parseTierA decodes Tier A output. A bare JSON array of findings is accepted.
// Errors wrap domain.ErrMalformedOutput.
func parseTierA(raw string) (tierAOutput, error) {
	var out tierAOutput
	s := cleanJSON(raw)
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &out.Findings); err != nil {
			return out, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
		}
	} else if err := json.Unmarshal([]byte(s), &out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	normaliseFindings(out.Findings)

	if err := validator.New().Struct(out); err != nil {
		return out, fmt.Errorf("%w: %s", domain.ErrMalformedOutput, describeValidation(err))
	}
	return out, nil
}

// parseTierC decodes the output of one Tier C category.
// Errors wrap domain.ErrMalformedOutput.
func parseTierC(raw string) (tierCOutput, error) {
	var out tierCOutput
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &out); err != nil {
		return out, fmt.Errorf("%w: %v", domain.ErrMalformedOutput, err)
	}
	normaliseFindings(out.Risks)
	for i := range out.Metrics {
		out.Metrics[i].Name = strings.TrimSpace(out.Metrics[i].Name)
		out.Metrics[i].Value = strings.TrimSpace(out.Metrics[i].Value)
		out.Metrics[i].Change = strings.TrimSpace(out.Metrics[i].Change)
		out.Metrics[i].Polarity = strings.ToLower(strings.TrimSpace(out.Metrics[i].Polarity))
		out.Metrics[i].ChunkIDs = cleanIDs(out.Metrics[i].ChunkIDs)
	}

	if err := validator.New().Struct(out); err != nil {
		return out, fmt.Errorf("%w: %s", domain.ErrMalformedOutput, describeValidation(err))
	}
	return out, nil
}

// parseSummary trims Tier B output and removes any wrapping quotes or fences.
func parseSummary(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); len(m) > 1 {
		s = strings.TrimSpace(m[1])
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func normaliseFindings(findings []findingOutput) {
	for i := range findings {
		findings[i].Text = strings.TrimSpace(findings[i].Text)
		findings[i].Polarity = strings.ToLower(strings.TrimSpace(findings[i].Polarity))
		findings[i].ChunkIDs = cleanIDs(findings[i].ChunkIDs)
	}
}

// cleanIDs trims ids, strips the brackets models copy from the prompt and drops duplicates.
func cleanIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.Trim(strings.TrimSpace(id), "[]")
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

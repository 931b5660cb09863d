package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// unverifiedPenalty scales the confidence of metrics kept in warn mode
// although their numbers were not found in the cited chunks.
const unverifiedPenalty = 0.5

// runTierA produces the causal findings explaining the price move.
func (a *Analyzer) runTierA(ctx context.Context, rc *RequestContext, st *tierState) error {
	contract := a.contracts.A

	st.to(domain.StateRetrieving, 0, "")
	retrieved, err := a.retrieve(ctx, rc, string(contract.Tier), contract.Queries, contract.TopK)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	var (
		out      tierAOutput
		findings []domain.TierFinding
	)
	err = a.generate(ctx, st, contract, generation{
		render: func(feedback []string) (string, error) {
			return a.prompts.render(contract.Prompt, PromptData{
				Ticker:   rc.Transcript.Ticker,
				Period:   rc.Transcript.Period,
				Label:    contract.Queries[0].Label,
				Query:    contract.Queries[0].Text,
				Contract: contract,
				Context:  promptChunks(retrieved),
				Market:   rc.Market,
				Feedback: feedback,
			})
		},
		parse: func(raw string) error {
			var err error
			out, err = parseTierA(raw)
			return err
		},
		check: func() []string {
			var violations []string
			findings, violations = a.checkFindings(rc, contract, "finding", out.Findings, retrieved, domain.PolarityNeutral)
			if v := countViolation(contract, len(findings), "findings"); v != "" {
				violations = append(violations, v)
			}
			return violations
		},
	})
	if err != nil {
		return err
	}

	reduced := rc.Market == nil
	if reduced {
		for i := range findings {
			findings[i].Confidence = round3(findings[i].Confidence * a.cfg.ReducedConfidenceFactor)
			findings[i].Annotate(domain.AnnotationReducedConfidence)
		}
	}

	rc.Bundle.TierA.Findings = findings
	rc.Bundle.TierA.ReducedConfidence = reduced
	return nil
}

// runTierB produces the plain-language summary.
func (a *Analyzer) runTierB(ctx context.Context, rc *RequestContext, st *tierState) error {
	contract := a.contracts.B

	st.to(domain.StateRetrieving, 0, "")
	retrieved, err := a.retrieve(ctx, rc, string(contract.Tier), contract.Queries, contract.TopK)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}

	var summary string
	err = a.generate(ctx, st, contract, generation{
		render: func(feedback []string) (string, error) {
			return a.prompts.render(contract.Prompt, PromptData{
				Ticker:   rc.Transcript.Ticker,
				Period:   rc.Transcript.Period,
				Label:    contract.Queries[0].Label,
				Query:    contract.Queries[0].Text,
				Contract: contract,
				Context:  promptChunks(retrieved),
				Market:   rc.Market,
				Feedback: feedback,
			})
		},
		parse: func(raw string) error {
			summary = parseSummary(raw)
			return nil
		},
		check: func() []string {
			n := utf8.RuneCountInString(summary)
			switch {
			case n == 0:
				return []string{"summary is empty"}
			case n < contract.MinLength:
				return []string{fmt.Sprintf("summary has %d characters, expected at least %d", n, contract.MinLength)}
			case contract.MaxLength > 0 && n > contract.MaxLength:
				return []string{fmt.Sprintf("summary has %d characters, expected at most %d", n, contract.MaxLength)}
			default:
				return nil
			}
		},
	})
	if err != nil {
		return err
	}

	rc.Bundle.TierB.Summary = summary
	return nil
}

// tierCCategory is the retrieval of one Tier C sub-query.
type tierCCategory struct {
	query     domain.ContractQuery
	retrieved domain.RetrievalResult
}

// runTierC produces the expert digest: one grounded generation per metric
// category, merged in contract order. MaxItems bounds each category while
// MinItems applies to the merged digest, so a category the call never
// discusses may come back empty.
func (a *Analyzer) runTierC(ctx context.Context, rc *RequestContext, st *tierState) error {
	contract := a.contracts.C
	perCategory := contract
	perCategory.MinItems = 0

	st.to(domain.StateRetrieving, 0, "")
	categories := make([]tierCCategory, 0, len(contract.Queries))
	for _, q := range contract.Queries {
		retrieved, err := rc.Retriever.Retrieve(ctx, rc.Index, q.Text, contract.TopK)
		if err != nil {
			return fmt.Errorf("retrieve %s: %w", q.Label, err)
		}
		categories = append(categories, tierCCategory{query: q, retrieved: retrieved})
	}

	var (
		metrics []domain.MetricExtract
		risks   []domain.TierFinding
		raws    []string
	)
	for _, cat := range categories {
		var (
			out      tierCOutput
			m        []domain.MetricExtract
			r        []domain.TierFinding
			excerpts = promptChunks(cat.retrieved)
		)
		err := a.generate(ctx, st, contract, generation{
			render: func(feedback []string) (string, error) {
				return a.prompts.render(contract.Prompt, PromptData{
					Ticker:   rc.Transcript.Ticker,
					Period:   rc.Transcript.Period,
					Label:    cat.query.Label,
					Query:    cat.query.Text,
					Contract: contract,
					Context:  excerpts,
					Market:   rc.Market,
					Feedback: feedback,
				})
			},
			parse: func(raw string) error {
				var err error
				out, err = parseTierC(raw)
				return err
			},
			check: func() []string {
				var violations []string
				m, r, violations = a.checkMetrics(rc, contract, domain.MetricCategory(cat.query.Label), out, cat.retrieved)
				if v := countViolation(perCategory, len(m)+len(r), cat.query.Label+" items"); v != "" {
					violations = append(violations, v)
				}
				return violations
			},
		})
		raws = append(raws, "## "+cat.query.Label+"\n"+st.result.Raw)
		if err != nil {
			st.result.Raw = strings.Join(raws, "\n\n")
			return fmt.Errorf("%s: %w", cat.query.Label, err)
		}
		metrics = append(metrics, m...)
		risks = append(risks, r...)
	}

	st.result.Raw = strings.Join(raws, "\n\n")
	if n := len(metrics) + len(risks); n < contract.MinItems {
		return domain.NewValidationError(contract.Tier,
			fmt.Sprintf("expected at least %d digest items across categories, got %d", contract.MinItems, n))
	}
	rc.Bundle.TierC.Metrics = metrics
	rc.Bundle.TierC.Risks = risks
	return nil
}

// checkFindings grounds generated findings against the retrieval result.
// In strict mode every violation is reported; in warn mode bad citations are
// dropped and findings left with no citation are removed.
func (a *Analyzer) checkFindings(
	rc *RequestContext,
	contract domain.TierContract,
	kind string,
	outs []findingOutput,
	retrieved domain.RetrievalResult,
	defaultPolarity domain.Polarity,
) ([]domain.TierFinding, []string) {
	findings := make([]domain.TierFinding, 0, len(outs))
	var violations []string

	for i, f := range outs {
		subject := fmt.Sprintf("%s %d", kind, i+1)
		valid, dropped, violation := a.ground(rc, contract, subject, f.ChunkIDs, retrieved)
		if violation != "" {
			violations = append(violations, violation)
			continue
		}
		if valid == nil {
			continue
		}

		polarity := domain.Polarity(f.Polarity)
		if polarity == "" {
			polarity = defaultPolarity
		}
		finding := domain.TierFinding{
			Text:       f.Text,
			Polarity:   polarity,
			Confidence: Confidence(f.Confidence, valid, retrieved),
			ChunkIDs:   valid,
		}
		if dropped {
			finding.Annotate(domain.AnnotationCitationDropped)
		}

		if contract.VerifyNumbers {
			if missing := unsupportedNumbers(f.Text, evidence(rc.Index, valid)); len(missing) > 0 {
				msg := fmt.Sprintf("%s: %s not found in cited chunks", subject, strings.Join(missing, ", "))
				if contract.CitationMode == domain.CitationStrict {
					violations = append(violations, msg)
					continue
				}
				rc.Log.Warn("Tier %s %s", contract.Tier, msg)
				finding.Confidence = round3(finding.Confidence * unverifiedPenalty)
			}
		}

		findings = append(findings, finding)
	}

	return findings, violations
}

// checkMetrics grounds one Tier C category and cross-checks every number
// against the text of the chunks the metric cites.
func (a *Analyzer) checkMetrics(
	rc *RequestContext,
	contract domain.TierContract,
	category domain.MetricCategory,
	out tierCOutput,
	retrieved domain.RetrievalResult,
) ([]domain.MetricExtract, []domain.TierFinding, []string) {
	metrics := make([]domain.MetricExtract, 0, len(out.Metrics))
	var violations []string

	for _, mo := range out.Metrics {
		subject := fmt.Sprintf("metric %q", mo.Name)
		valid, dropped, violation := a.ground(rc, contract, subject, mo.ChunkIDs, retrieved)
		if violation != "" {
			violations = append(violations, violation)
			continue
		}
		if valid == nil {
			continue
		}

		metric := domain.MetricExtract{
			Category:   category,
			Name:       mo.Name,
			Value:      mo.Value,
			Change:     mo.Change,
			Polarity:   domain.Polarity(mo.Polarity),
			Confidence: Confidence(mo.Confidence, valid, retrieved),
			ChunkIDs:   valid,
		}
		metric.Polarity = MetricPolarity(metric)
		if dropped {
			metric.Annotate(domain.AnnotationCitationDropped)
		}

		if contract.VerifyNumbers {
			missing := unsupportedNumbers(mo.Value+" "+mo.Change, evidence(rc.Index, valid))
			switch {
			case len(missing) == 0:
				metric.Verified = true
			case contract.CitationMode == domain.CitationStrict:
				violations = append(violations, fmt.Sprintf("%s: %s not found in cited chunks",
					subject, strings.Join(missing, ", ")))
				continue
			default:
				rc.Log.Warn("Tier %s %s: unverified numbers %s", contract.Tier, subject, strings.Join(missing, ", "))
				metric.Confidence = round3(metric.Confidence * unverifiedPenalty)
			}
		}

		metrics = append(metrics, metric)
	}

	risks, riskViolations := a.checkFindings(rc, contract, string(category)+" risk", out.Risks, retrieved, domain.PolarityNegative)
	violations = append(violations, riskViolations...)

	return metrics, risks, violations
}

// ground applies the contract's citation rules to one claim's chunk ids.
// It returns the citations that were retrieved, whether any were dropped,
// and a violation in strict mode. A nil valid slice with no violation means
// the claim was dropped in warn mode.
func (a *Analyzer) ground(
	rc *RequestContext,
	contract domain.TierContract,
	subject string,
	ids []string,
	retrieved domain.RetrievalResult,
) (valid []string, dropped bool, violation string) {
	valid = make([]string, 0, len(ids))
	var invalid []string
	for _, id := range ids {
		if retrieved.Contains(id) {
			valid = append(valid, id)
		} else {
			invalid = append(invalid, id)
		}
	}

	strict := contract.CitationMode == domain.CitationStrict
	if len(invalid) > 0 {
		if strict {
			return nil, false, fmt.Sprintf("%s cites chunks that were not retrieved: %s", subject, strings.Join(invalid, ", "))
		}
		rc.Log.Warn("Tier %s %s: dropping citations to chunks that were not retrieved: %s",
			contract.Tier, subject, strings.Join(invalid, ", "))
		dropped = true
	}

	if contract.Grounded && len(valid) == 0 {
		if strict {
			return nil, false, subject + " cites no retrieved chunk"
		}
		rc.Log.Warn("Tier %s %s: dropped, no retrieved chunk cited", contract.Tier, subject)
		return nil, dropped, ""
	}

	return valid, dropped, ""
}

// countViolation checks an item count against the contract bounds.
func countViolation(contract domain.TierContract, n int, what string) string {
	if n < contract.MinItems || (contract.MaxItems > 0 && n > contract.MaxItems) {
		if contract.MaxItems > 0 {
			return fmt.Sprintf("expected %d to %d %s, got %d", contract.MinItems, contract.MaxItems, what, n)
		}
		return fmt.Sprintf("expected at least %d %s, got %d", contract.MinItems, what, n)
	}
	return ""
}

// evidence collects the numbers written in the given chunks.
func evidence(idx *domain.Index, chunkIDs []string) numberSet {
	texts := make([]string, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		if c, ok := idx.Chunk(id); ok {
			texts = append(texts, c.Text)
		}
	}
	return newNumberSet(texts...)
}

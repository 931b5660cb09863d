package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/logger"
)

var (
	positiveChange = regexp.MustCompile(`(?i)\b(up|grew|grow|growth|increase[sd]?|rose|rise|higher|beat|expand(?:ed|ing)?|improve[sd]?|record|gain(?:ed|s)?)\b`)
	negativeChange = regexp.MustCompile(`(?i)\b(down|decline[sd]?|decrease[sd]?|fell|fall|drop(?:ped|s)?|lower|miss(?:ed)?|contract(?:ed|ion)?|shrank|weak(?:er)?|loss(?:es)?)\b`)
)

// Reconciler cross-checks Tier A findings against Tier C metrics.
type Reconciler struct {
	penalty   float64
	threshold float64
}

// NewReconciler creates a reconciler from the pipeline's conflict penalty
// and low-confidence threshold.
func NewReconciler(cfg domain.PipelineConfig) *Reconciler {
	return &Reconciler{
		penalty:   cfg.ConflictPenalty,
		threshold: cfg.ConfidenceThreshold,
	}
}

// Reconcile flags contradictions between tiers and orders Tier A.
//
// A Tier A finding and a Tier C metric that cite a common chunk with
// opposing polarity conflict: both have their confidence scaled by the
// penalty (once, however many conflicts they take part in), both are
// annotated, and a Conflict is recorded. Nothing is dropped. Tier A is then
// stable-sorted by descending confidence, and claims below the threshold
// are annotated as low confidence. The bundle is modified in place.
func (r *Reconciler) Reconcile(b *domain.AnalysisBundle) *domain.AnalysisBundle {
	if !b.TierA.Failed() && !b.TierC.Failed() {
		r.flagConflicts(b)
	}

	sort.SliceStable(b.TierA.Findings, func(i, j int) bool {
		return b.TierA.Findings[i].Confidence > b.TierA.Findings[j].Confidence
	})

	if r.threshold > 0 {
		for i := range b.TierA.Findings {
			if b.TierA.Findings[i].Confidence < r.threshold {
				b.TierA.Findings[i].Annotate(domain.AnnotationLowConfidence)
			}
		}
		for i := range b.TierC.Metrics {
			if b.TierC.Metrics[i].Confidence < r.threshold {
				b.TierC.Metrics[i].Annotate(domain.AnnotationLowConfidence)
			}
		}
		for i := range b.TierC.Risks {
			if b.TierC.Risks[i].Confidence < r.threshold {
				b.TierC.Risks[i].Annotate(domain.AnnotationLowConfidence)
			}
		}
	}

	return b
}

func (r *Reconciler) flagConflicts(b *domain.AnalysisBundle) {
	findings := b.TierA.Findings
	metrics := b.TierC.Metrics

	penalisedFinding := make(map[int]bool)
	penalisedMetric := make(map[int]bool)

	for i := range findings {
		for j := range metrics {
			fp, mp := findings[i].Polarity, MetricPolarity(metrics[j])
			if !fp.Opposes(mp) {
				continue
			}
			shared, ok := sharedChunk(findings[i].ChunkIDs, metrics[j].ChunkIDs)
			if !ok {
				continue
			}

			logger.Debug("Conflict on chunk %s: %q (%s) vs %s %q (%s)",
				shared, findings[i].Text, fp, metrics[j].Name, metrics[j].Value, mp)

			if !penalisedFinding[i] {
				findings[i].Confidence = round3(findings[i].Confidence * r.penalty)
				findings[i].Annotate(domain.AnnotationConflict)
				penalisedFinding[i] = true
			}
			if !penalisedMetric[j] {
				metrics[j].Confidence = round3(metrics[j].Confidence * r.penalty)
				metrics[j].Annotate(domain.AnnotationConflict)
				penalisedMetric[j] = true
			}

			b.Conflicts = append(b.Conflicts, domain.Conflict{
				ChunkID:         shared,
				Finding:         findings[i].Text,
				FindingPolarity: fp,
				Metric:          strings.TrimSpace(metrics[j].Name + " " + metrics[j].Value),
				MetricPolarity:  mp,
			})
		}
	}
}

// sharedChunk returns the first chunk id of a that also appears in b.
func sharedChunk(a, b []string) (string, bool) {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return x, true
			}
		}
	}
	return "", false
}

// MetricPolarity returns the direction a metric claims: its explicit
// polarity when positive or negative, otherwise the direction of its change.
func MetricPolarity(m domain.MetricExtract) domain.Polarity {
	if m.Polarity == domain.PolarityPositive || m.Polarity == domain.PolarityNegative {
		return m.Polarity
	}
	return DerivePolarity(m.Change)
}

// DerivePolarity reads a direction from a change description such as
// "+5% YoY", "-120 bps" or "down 3%".
func DerivePolarity(change string) domain.Polarity {
	s := strings.TrimSpace(change)
	if s == "" {
		return domain.PolarityNeutral
	}
	switch {
	case strings.HasPrefix(s, "+"):
		return domain.PolarityPositive
	case strings.HasPrefix(s, "-"), strings.HasPrefix(s, "−"), strings.HasPrefix(s, "("):
		return domain.PolarityNegative
	}

	pos := positiveChange.MatchString(s)
	neg := negativeChange.MatchString(s)
	switch {
	case pos && !neg:
		return domain.PolarityPositive
	case neg && !pos:
		return domain.PolarityNegative
	default:
		return domain.PolarityNeutral
	}
}

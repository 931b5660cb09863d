package domain

// Polarity is the directional sense of a claim.
type Polarity string

// Available polarities.
const (
	PolarityPositive Polarity = "positive"
	PolarityNegative Polarity = "negative"
	PolarityNeutral  Polarity = "neutral"
)

// IsValid returns true if the polarity is recognised.
func (p Polarity) IsValid() bool {
	switch p {
	case PolarityPositive, PolarityNegative, PolarityNeutral:
		return true
	default:
		return false
	}
}

// Opposes returns true if the two polarities are directly contradictory.
// Neutral never opposes anything.
func (p Polarity) Opposes(other Polarity) bool {
	return (p == PolarityPositive && other == PolarityNegative) ||
		(p == PolarityNegative && other == PolarityPositive)
}

// String returns the string representation.
func (p Polarity) String() string {
	return string(p)
}

// Annotation flags a finding or metric for downstream display treatment.
type Annotation string

// Known annotations.
const (
	// AnnotationConflict marks a claim contradicted by another tier on shared evidence.
	AnnotationConflict Annotation = "conflict"

	// AnnotationLowConfidence marks a claim below the configured confidence threshold.
	AnnotationLowConfidence Annotation = "low_confidence"

	// AnnotationReducedConfidence marks a Tier A claim made without market data.
	AnnotationReducedConfidence Annotation = "reduced_confidence"

	// AnnotationCitationDropped marks a claim whose invalid citations were removed
	// in warn-only citation mode.
	AnnotationCitationDropped Annotation = "citation_dropped"
)

// TierFinding is a single atomic claim produced by the analyzer.
type TierFinding struct {
	// Text is the claim.
	Text string `json:"text"`

	// Polarity is the claim's direction.
	Polarity Polarity `json:"polarity"`

	// Confidence is in [0, 1], derived from retrieval strength and generation agreement.
	Confidence float64 `json:"confidence"`

	// ChunkIDs are the supporting chunks. Always a subset of the retrieved chunks.
	ChunkIDs []string `json:"chunk_ids"`

	// Annotations flag the finding for display treatment.
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotate adds an annotation if not already present.
func (f *TierFinding) Annotate(a Annotation) {
	f.Annotations = addAnnotation(f.Annotations, a)
}

// HasAnnotation returns true if the finding carries the annotation.
func (f TierFinding) HasAnnotation(a Annotation) bool {
	return hasAnnotation(f.Annotations, a)
}

// MetricCategory groups Tier C extracts.
type MetricCategory string

// Metric categories, one retrieval sub-query each.
const (
	MetricRevenue  MetricCategory = "revenue"
	MetricMargins  MetricCategory = "margins"
	MetricGuidance MetricCategory = "guidance"
	MetricRisk     MetricCategory = "risk"
)

// AllMetricCategories returns the categories in digest order.
func AllMetricCategories() []MetricCategory {
	return []MetricCategory{MetricRevenue, MetricMargins, MetricGuidance, MetricRisk}
}

// IsValid returns true if the category is recognised.
func (c MetricCategory) IsValid() bool {
	switch c {
	case MetricRevenue, MetricMargins, MetricGuidance, MetricRisk:
		return true
	default:
		return false
	}
}

// MetricExtract is a quantitative fact extracted for the expert digest.
type MetricExtract struct {
	// Category is the sub-query the metric was extracted under.
	Category MetricCategory `json:"category"`

	// Name is the metric label (e.g. "Revenue", "EPS").
	Name string `json:"name"`

	// Value is the reported figure as text (e.g. "$97.3B").
	Value string `json:"value"`

	// Change is the reported change (e.g. "+5% YoY"), if any.
	Change string `json:"change,omitempty"`

	// Polarity is the metric's direction.
	Polarity Polarity `json:"polarity"`

	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence"`

	// ChunkIDs are the supporting chunks.
	ChunkIDs []string `json:"chunk_ids"`

	// Verified is true once every number in Value and Change was found in a cited chunk.
	Verified bool `json:"verified"`

	// Annotations flag the metric for display treatment.
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Annotate adds an annotation if not already present.
func (m *MetricExtract) Annotate(a Annotation) {
	m.Annotations = addAnnotation(m.Annotations, a)
}

// HasAnnotation returns true if the metric carries the annotation.
func (m MetricExtract) HasAnnotation(a Annotation) bool {
	return hasAnnotation(m.Annotations, a)
}

func addAnnotation(list []Annotation, a Annotation) []Annotation {
	if hasAnnotation(list, a) {
		return list
	}
	return append(list, a)
}

func hasAnnotation(list []Annotation, a Annotation) bool {
	for _, existing := range list {
		if existing == a {
			return true
		}
	}
	return false
}

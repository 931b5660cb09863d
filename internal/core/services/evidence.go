package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numberPattern matches figures as written in transcripts and model output:
// 97.3, 1,234, $1.53, 46%. Signs and units are not part of the match.
var numberPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// extractNumbers returns the numeric values written in s, in order.
func extractNumbers(s string) []float64 {
	matches := numberPattern.FindAllString(s, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(strings.ReplaceAll(m, ",", ""), ".")
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// numberSet holds the numbers found in a body of text.
type numberSet []float64

func newNumberSet(texts ...string) numberSet {
	var set numberSet
	for _, t := range texts {
		set = append(set, extractNumbers(t)...)
	}
	return set
}

// contains reports whether v appears in the set, ignoring float noise.
func (s numberSet) contains(v float64) bool {
	for _, n := range s {
		if math.Abs(n-v) < 1e-9 {
			return true
		}
	}
	return false
}

// unsupportedNumbers returns the numbers of claim that do not occur in evidence.
func unsupportedNumbers(claim string, evidence numberSet) []string {
	var missing []string
	for _, m := range numberPattern.FindAllString(claim, -1) {
		v, err := strconv.ParseFloat(strings.TrimRight(strings.ReplaceAll(m, ",", ""), "."), 64)
		if err != nil {
			continue
		}
		if !evidence.contains(v) {
			missing = append(missing, m)
		}
	}
	return missing
}

package vision

import "math"

// Label is a detected object/attribute with its confidence in [0,100].
type Label struct {
	Name       string
	Confidence float64
}

// Similarity scores two label sets as a confidence-weighted overlap
// percentage. Per label in a: a same-named label in b contributes
// `a.Confidence * matchQuality` where matchQuality decays linearly with the
// confidence gap. Two empty sets score 100 (nothing distinguishes the
// images); exactly one empty set scores 0.
func Similarity(a, b []Label) int {
	if len(a) == 0 && len(b) == 0 {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var matchScore, totalScore float64
	for _, la := range a {
		totalScore += la.Confidence

		match, ok := findLabel(b, la.Name)
		if !ok {
			continue
		}
		confidenceDiff := math.Abs(la.Confidence - match.Confidence)
		matchQuality := math.Max(0, 100-confidenceDiff) / 100
		matchScore += la.Confidence * matchQuality
	}

	if totalScore <= 0 {
		return 0
	}
	similarity := matchScore / totalScore * 100
	return int(math.Round(math.Min(100, math.Max(0, similarity))))
}

// CommonLabels lists names present in both sets whose confidences are within
// 30 points of each other, in a's order.
func CommonLabels(a, b []Label) []string {
	var common []string
	for _, la := range a {
		if match, ok := findLabel(b, la.Name); ok && math.Abs(la.Confidence-match.Confidence) < 30 {
			common = append(common, la.Name)
		}
	}
	return common
}

func findLabel(labels []Label, name string) (Label, bool) {
	for _, l := range labels {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}

package scoring

import "math"

// Category is a single evaluated rubric category as produced by an evaluator.
type Category struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

// WeightedScore is a persisted per-category score.
type WeightedScore struct {
	Key           string  `json:"key"`
	Label         string  `json:"label"`
	RawScore      int     `json:"raw_score"`
	Weight        float64 `json:"weight"`
	WeightedScore float64 `json:"weighted_score"`
	Comment       string  `json:"comment,omitempty"`
}

// Reconciliation is the outcome of mapping evaluator categories onto a rubric.
type Reconciliation struct {
	Scores    []WeightedScore
	Total     float64
	Unmatched []string
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// ClampScore rounds a raw score to an integer within [0,100].
func ClampScore(value float64) int {
	if math.IsNaN(value) {
		return 0
	}
	rounded := math.Round(value)
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return int(rounded)
}

// Reconcile weights every category by its rubric criterion. Categories without
// a matching criterion keep a zero weight and are reported in Unmatched; a
// repeated key only counts once.
func Reconcile(criteria []Criterion, categories []Category) Reconciliation {
	index := NewIndex(criteria)
	result := Reconciliation{Scores: make([]WeightedScore, 0, len(categories))}
	counted := make(map[string]struct{}, len(categories))

	var total float64
	for _, category := range categories {
		key := NormalizeKey(category.Key)
		if key == "" {
			key = NormalizeKey(category.Label)
		}
		label := category.Label
		if label == "" {
			label = category.Key
		}

		if _, dup := counted[key]; dup {
			result.Unmatched = append(result.Unmatched, key)
			continue
		}
		counted[key] = struct{}{}

		var weight float64
		if criterion, ok := index.Lookup(key); ok {
			weight = criterion.Weight
		} else {
			result.Unmatched = append(result.Unmatched, key)
		}

		raw := ClampScore(category.Score)
		weighted := Round2(float64(raw) * weight / 100)
		total += weighted

		result.Scores = append(result.Scores, WeightedScore{
			Key:           key,
			Label:         label,
			RawScore:      raw,
			Weight:        weight,
			WeightedScore: weighted,
			Comment:       category.Comment,
		})
	}

	result.Total = math.Min(Round2(total), 100)
	return result
}

package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// RubricTotalWeight is the sum every rubric's weights must reach.
const RubricTotalWeight = 100.0

const weightTolerance = 1e-6

// ErrInvalidRubric indicates a rubric that cannot be used for evaluation.
var ErrInvalidRubric = errors.New("invalid rubric")

// Criterion is one named, weighted scoring criterion of a challenge rubric.
type Criterion struct {
	Name        string  `json:"name"`
	Weight      float64 `json:"weight"`
	Description string  `json:"description,omitempty"`
}

// RubricError describes the rubric entry that failed validation. Index is -1
// when the problem concerns the rubric as a whole.
type RubricError struct {
	Index     int
	Criterion Criterion
	Reason    string
}

func (e *RubricError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid rubric: %s", e.Reason)
	}
	return fmt.Sprintf("invalid rubric entry %d (%q, weight %g): %s", e.Index, e.Criterion.Name, e.Criterion.Weight, e.Reason)
}

func (e *RubricError) Unwrap() error {
	return ErrInvalidRubric
}

// NormalizeKey produces the canonical form used to match category keys
// against rubric criterion names.
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// ValidateRubric checks names, weight bounds, uniqueness and that the weights
// add up to RubricTotalWeight.
func ValidateRubric(criteria []Criterion) error {
	if len(criteria) == 0 {
		return &RubricError{Index: -1, Reason: "rubric has no criteria"}
	}

	seen := make(map[string]struct{}, len(criteria))
	var sum float64
	for idx, criterion := range criteria {
		key := NormalizeKey(criterion.Name)
		if key == "" {
			return &RubricError{Index: idx, Criterion: criterion, Reason: "name is required"}
		}
		if math.IsNaN(criterion.Weight) || criterion.Weight < 0 || criterion.Weight > RubricTotalWeight {
			return &RubricError{Index: idx, Criterion: criterion, Reason: "weight must be between 0 and 100"}
		}
		if _, dup := seen[key]; dup {
			return &RubricError{Index: idx, Criterion: criterion, Reason: "duplicate criterion name"}
		}
		seen[key] = struct{}{}
		sum += criterion.Weight
	}

	if math.Abs(sum-RubricTotalWeight) > weightTolerance {
		return &RubricError{Index: -1, Reason: fmt.Sprintf("weights sum to %g, expected 100", sum)}
	}

	return nil
}

// Index is a case-insensitive lookup from criterion name to criterion.
type Index map[string]Criterion

// NewIndex builds a lookup for the provided criteria. The first criterion wins
// when two names normalise to the same key.
func NewIndex(criteria []Criterion) Index {
	index := make(Index, len(criteria))
	for _, criterion := range criteria {
		key := NormalizeKey(criterion.Name)
		if key == "" {
			continue
		}
		if _, exists := index[key]; !exists {
			index[key] = criterion
		}
	}
	return index
}

// Lookup resolves a category key or label against the rubric.
func (i Index) Lookup(name string) (Criterion, bool) {
	criterion, ok := i[NormalizeKey(name)]
	return criterion, ok
}

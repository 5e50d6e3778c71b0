package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
)

// LinearModel scores Intercept + sum(Coefficients[name] * features[name]).
type LinearModel struct {
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`

	names []string
}

func (lm *LinearModel) Predict(ctx context.Context, features map[string]float64) (float64, error) {
	if len(lm.Coefficients) == 0 {
		return 0, errors.New("model not trained")
	}
	names := lm.names
	if names == nil {
		names = lm.FeatureNames()
	}
	score := lm.Intercept
	for _, name := range names {
		value, ok := features[name]
		if !ok {
			return 0, fmt.Errorf("missing feature %q", name)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return 0, fmt.Errorf("feature %q is not finite", name)
		}
		score += lm.Coefficients[name] * value
	}
	return score, nil
}

// Loaded reports whether lm has coefficients. It is safe on a nil receiver.
func (lm *LinearModel) Loaded() bool {
	return lm != nil && len(lm.Coefficients) > 0
}

// FeatureNames returns the coefficient names in sorted order.
func (lm *LinearModel) FeatureNames() []string {
	names := make([]string, 0, len(lm.Coefficients))
	for name := range lm.Coefficients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (lm *LinearModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LinearModel
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode linear model: %w", err)
	}
	if len(loaded.Coefficients) == 0 {
		return fmt.Errorf("invalid linear model %s: no coefficients", path)
	}
	loaded.names = loaded.FeatureNames()
	*lm = loaded
	return nil
}

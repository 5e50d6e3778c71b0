package ml

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// TreeEnsemble is a gradient-boosted ensemble of regression trees. The score
// is BaseScore + LearningRate * sum(leaf values).
type TreeEnsemble struct {
	Features     []string         `json:"feature_names"`
	BaseScore    float64          `json:"base_score"`
	LearningRate float64          `json:"learning_rate"`
	Trees        []RegressionTree `json:"trees"`
}

// RegressionTree stores nodes in pre-order; node 0 is the root.
type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

func (te *TreeEnsemble) Predict(ctx context.Context, features map[string]float64) (float64, error) {
	if len(te.Trees) == 0 {
		return 0, errors.New("model not trained")
	}
	vector, err := te.vector(features)
	if err != nil {
		return 0, err
	}

	sum := 0.0
	for i := range te.Trees {
		value, err := te.Trees[i].predict(vector)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += value
	}
	return te.BaseScore + te.learningRate()*sum, nil
}

// Loaded reports whether te holds trees to score with. It is safe on a nil
// receiver.
func (te *TreeEnsemble) Loaded() bool {
	return te != nil && len(te.Trees) > 0
}

func (te *TreeEnsemble) FeatureNames() []string {
	return append([]string(nil), te.Features...)
}

func (te *TreeEnsemble) Save(path string) error {
	if len(te.Trees) == 0 {
		return errors.New("model not trained")
	}
	payload, err := json.Marshal(te)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (te *TreeEnsemble) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded TreeEnsemble
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return fmt.Errorf("decode tree ensemble: %w", err)
	}
	if err := loaded.validate(); err != nil {
		return fmt.Errorf("invalid tree ensemble %s: %w", path, err)
	}
	*te = loaded
	return nil
}

func (te *TreeEnsemble) learningRate() float64 {
	if te.LearningRate == 0 {
		return 1
	}
	return te.LearningRate
}

func (te *TreeEnsemble) vector(features map[string]float64) ([]float64, error) {
	vector := make([]float64, len(te.Features))
	for i, name := range te.Features {
		value, ok := features[name]
		if !ok {
			return nil, fmt.Errorf("missing feature %q", name)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("feature %q is not finite", name)
		}
		vector[i] = value
	}
	return vector, nil
}

func (te *TreeEnsemble) validate() error {
	if len(te.Features) == 0 {
		return errors.New("no feature names")
	}
	seen := make(map[string]struct{}, len(te.Features))
	for _, name := range te.Features {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}
	if len(te.Trees) == 0 {
		return errors.New("no trees")
	}
	for i := range te.Trees {
		if err := te.Trees[i].validate(len(te.Features)); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

func (rt *RegressionTree) predict(features []float64) (float64, error) {
	if len(rt.Nodes) == 0 {
		return 0, errors.New("empty tree")
	}
	idx := 0
	for {
		node := rt.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(rt.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

// validate also rejects cycles: children must follow their parent.
func (rt *RegressionTree) validate(featureCount int) error {
	if len(rt.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, node := range rt.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		for _, child := range []int{node.LeftChild, node.RightChild} {
			if child <= i || child >= len(rt.Nodes) {
				return fmt.Errorf("node %d: invalid child %d", i, child)
			}
		}
	}
	return nil
}

package ml

import "context"

// Model scores a named feature vector. Implementations are read-only after
// loading and must be safe for concurrent use.
type Model interface {
	Predict(ctx context.Context, features map[string]float64) (float64, error)
}

// Available reports whether m can serve predictions. A nil interface and a
// typed nil pointer are both unavailable, as is a model that reports itself
// as not loaded.
func Available(m Model) bool {
	if m == nil {
		return false
	}
	if l, ok := m.(interface{ Loaded() bool }); ok {
		return l.Loaded()
	}
	return true
}

// Describer is implemented by models that can report the features they read.
type Describer interface {
	FeatureNames() []string
}

// Features returns the feature names m reads, or nil when m cannot tell.
func Features(m Model) []string {
	if d, ok := m.(Describer); ok && Available(m) {
		return d.FeatureNames()
	}
	return nil
}

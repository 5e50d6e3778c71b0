package predict

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"flatprice/ml"
	"flatprice/validation"
)

// PredictionError wraps a failure raised by the model while scoring.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// DeriveFeatures replaces build_year with building_age, which is what the
// model was trained on. params is left untouched.
func DeriveFeatures(params validation.Parameters, year int) map[string]float64 {
	features := make(map[string]float64, len(params))
	for k, v := range params {
		features[k] = v
	}
	if buildYear, ok := features[validation.FieldBuildYear]; ok {
		features[validation.FieldBuildingAge] = float64(year) - buildYear
		delete(features, validation.FieldBuildYear)
	}
	return features
}

// Predictor turns validated parameters into a price estimate.
type Predictor struct {
	model  ml.Model
	now    func() time.Time
	cache  *lru.Cache[string, float64]
	logger *zap.Logger
}

type PredictorOption func(*Predictor)

func WithPredictorClock(now func() time.Time) PredictorOption {
	return func(p *Predictor) {
		if now != nil {
			p.now = now
		}
	}
}

func WithPredictorLogger(logger *zap.Logger) PredictorOption {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithScoreCache memoizes up to size scores. The model is pure, so equal
// feature vectors always score the same. size <= 0 disables the cache.
func WithScoreCache(size int) PredictorOption {
	return func(p *Predictor) {
		if size <= 0 {
			p.cache = nil
			return
		}
		cache, err := lru.New[string, float64](size)
		if err != nil {
			p.logger.Warn("score cache disabled", zap.Error(err))
			return
		}
		p.cache = cache
	}
}

func NewPredictor(model ml.Model, opts ...PredictorOption) (*Predictor, error) {
	if !ml.Available(model) {
		return nil, errors.New("predictor requires a model")
	}
	p := &Predictor{
		model:  model,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Predict derives features and scores them. Any model failure is returned
// as a *PredictionError.
func (p *Predictor) Predict(ctx context.Context, params validation.Parameters) (float64, error) {
	features := DeriveFeatures(params, p.now().Year())

	var key string
	if p.cache != nil {
		key = cacheKey(features)
		if score, ok := p.cache.Get(key); ok {
			p.logger.Debug("score cache hit")
			return score, nil
		}
	}

	score, err := p.model.Predict(ctx, features)
	if err != nil {
		return 0, &PredictionError{Err: err}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &PredictionError{Err: fmt.Errorf("model returned non-finite score %v", score)}
	}

	if p.cache != nil {
		p.cache.Add(key, score)
	}
	return score, nil
}

// CacheLen reports the number of memoized scores.
func (p *Predictor) CacheLen() int {
	if p.cache == nil {
		return 0
	}
	return p.cache.Len()
}

func cacheKey(features map[string]float64) string {
	names := make([]string, 0, len(features))
	for name := range features {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(features[name], 'g', -1, 64))
		b.WriteByte(';')
	}
	return b.String()
}

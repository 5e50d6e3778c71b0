// Package predict validates prediction requests, scores them with the loaded
// model and folds every outcome into a Result.
package predict

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"flatprice/ml"
	"flatprice/validation"
)

// Handler is the composition root of a prediction request:
// model presence, then validation, then prediction.
type Handler struct {
	validator *validation.Validator
	predictor *Predictor
	logger    *zap.Logger
}

type handlerConfig struct {
	now       func() time.Time
	logger    *zap.Logger
	cacheSize int
}

type HandlerOption func(*handlerConfig)

// WithClock sets the clock used for both the build_year range check and
// building_age.
func WithClock(now func() time.Time) HandlerOption {
	return func(c *handlerConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *zap.Logger) HandlerOption {
	return func(c *handlerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithCacheSize(size int) HandlerOption {
	return func(c *handlerConfig) {
		c.cacheSize = size
	}
}

// NewHandler builds a handler around model. A nil model, typed or not, means
// loading failed at startup; every request then fails with "Model not found".
func NewHandler(model ml.Model, opts ...HandlerOption) *Handler {
	cfg := handlerConfig{
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Handler{
		validator: validation.New(validation.WithClock(cfg.now)),
		logger:    cfg.logger,
	}
	if ml.Available(model) {
		// NewPredictor only fails on a nil model.
		h.predictor, _ = NewPredictor(model,
			WithPredictorClock(cfg.now),
			WithPredictorLogger(cfg.logger),
			WithScoreCache(cfg.cacheSize),
		)
	}
	return h
}

// ModelLoaded reports whether requests can reach the model.
func (h *Handler) ModelLoaded() bool {
	return h.predictor != nil
}

// Handle processes one request to completion. It never panics: unexpected
// faults become an internal error result.
func (h *Handler) Handle(ctx context.Context, raw map[string]any) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("panic while handling request", zap.Any("panic", r), zap.Stack("stack"))
			res = Failure(KindInternalError, msgInternalError)
		}
	}()

	if h.predictor == nil {
		h.logger.Warn(msgModelNotFound)
		return Failure(KindModelUnavailable, msgModelNotFound)
	}

	params, err := h.validator.Validate(raw)
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			h.logger.Info("request rejected", zap.String("kind", string(verr.Kind)), zap.String("reason", verr.Message))
			return Failure(ResultKind(verr.Kind), verr.Message)
		}
		h.logger.Error("unexpected validation failure", zap.Error(err))
		return Failure(KindInternalError, msgInternalError)
	}
	h.logger.Debug("all model params exist and correct")

	h.logger.Debug("making prediction")
	score, err := h.predictor.Predict(ctx, params)
	if err != nil {
		h.logger.Warn("prediction failed", zap.Error(err))
		return Failure(KindPredictionFailure, msgProblemPrefix+err.Error())
	}
	return OK(score)
}

package predict

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flatprice/ml"
	"flatprice/validation"
)

func canonicalParams() map[string]any {
	return map[string]any{
		"floor":             6,
		"kitchen_area":      8.5,
		"living_area":       30.0,
		"rooms":             2,
		"is_apartment":      false,
		"total_area":        50.0,
		"build_year":        1979,
		"building_type_int": 4,
		"latitude":          60.0,
		"longitude":         40.0,
		"ceiling_height":    2.5,
		"flats_count":       190,
		"floors_total":      12,
		"has_elevator":      true,
	}
}

func request(params map[string]any) map[string]any {
	return map[string]any{validation.EnvelopeKey: params}
}

func TestHandleSuccess(t *testing.T) {
	model := &fakeModel{score: 9_750_000}
	h := NewHandler(model, WithClock(clock2026))
	require.True(t, h.ModelLoaded())

	res := h.Handle(context.Background(), request(canonicalParams()))
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, KindSuccess, res.Kind)
	assert.Equal(t, 9_750_000.0, res.Score)
	assert.Empty(t, res.Message)
	assert.Equal(t, 47.0, model.last["building_age"])
	assert.Equal(t, 1.0, model.last["has_elevator"])
}

func TestHandleValidationFailures(t *testing.T) {
	negative := canonicalParams()
	negative["rooms"] = -1

	tests := []struct {
		name string
		raw  map[string]any
		kind ResultKind
	}{
		{name: "missing envelope", raw: map[string]any{"params": canonicalParams()}, kind: ResultKind(validation.MissingEnvelope)},
		{name: "empty payload", raw: request(map[string]any{}), kind: ResultKind(validation.SchemaMismatch)},
		{name: "negative rooms", raw: request(negative), kind: ResultKind(validation.RangeViolation)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &fakeModel{score: 1}
			h := NewHandler(model, WithClock(clock2026))

			res := h.Handle(context.Background(), tt.raw)
			assert.Equal(t, StatusError, res.Status)
			assert.Equal(t, tt.kind, res.Kind)
			assert.NotEmpty(t, res.Message)
			assert.Zero(t, model.Calls(), "model must not be invoked")
		})
	}
}

func TestHandleMissingEnvelopeMessage(t *testing.T) {
	h := NewHandler(&fakeModel{}, WithClock(clock2026))

	res := h.Handle(context.Background(), map[string]any{})
	assert.Equal(t, "Not all query params exist", res.Message)
}

func TestHandleModelAbsent(t *testing.T) {
	h := NewHandler(nil, WithClock(clock2026))
	require.False(t, h.ModelLoaded())

	invalid := canonicalParams()
	invalid["building_type_int"] = 99

	for _, raw := range []map[string]any{request(canonicalParams()), request(invalid), {}, nil} {
		res := h.Handle(context.Background(), raw)
		assert.Equal(t, StatusError, res.Status)
		assert.Equal(t, "Model not found", res.Message)
		assert.Equal(t, KindModelUnavailable, res.Kind)
	}
}

func TestHandleTypedNilModel(t *testing.T) {
	var ensemble *ml.TreeEnsemble
	h := NewHandler(ensemble, WithClock(clock2026))
	require.False(t, h.ModelLoaded())

	res := h.Handle(context.Background(), request(canonicalParams()))
	assert.Equal(t, KindModelUnavailable, res.Kind)
	assert.Equal(t, "Model not found", res.Message)
}

func TestHandleWithBundledModel(t *testing.T) {
	model, err := ml.LoadModel(ml.ModelTypeTreeEnsemble, filepath.Join("..", "models", "flats_prices_model.json"))
	require.NoError(t, err)

	h := NewHandler(model, WithClock(clock2026))
	require.True(t, h.ModelLoaded())

	res := h.Handle(context.Background(), request(canonicalParams()))
	require.True(t, res.IsOK(), res.Message)
	assert.Equal(t, StatusOK, res.Status)
	assert.InDelta(t, 9_500_000, res.Score, 1e-6)
}

func TestHandlePredictionFailure(t *testing.T) {
	h := NewHandler(&fakeModel{err: errors.New(`missing feature "building_age"`)}, WithClock(clock2026))

	res := h.Handle(context.Background(), request(canonicalParams()))
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, KindPredictionFailure, res.Kind)
	assert.Equal(t, `Problem with request, missing feature "building_age"`, res.Message)
}

func TestHandleRecoversFromModelPanic(t *testing.T) {
	h := NewHandler(&fakeModel{panicMsg: "index out of range"}, WithClock(clock2026))

	res := h.Handle(context.Background(), request(canonicalParams()))
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, KindInternalError, res.Kind)
	assert.Equal(t, "Problem with request, internal error", res.Message)
	assert.NotContains(t, res.Message, "index out of range")
}

func TestHandleConcurrent(t *testing.T) {
	model := &fakeModel{score: 5}
	h := NewHandler(model, WithClock(clock2026), WithCacheSize(16))

	var wg sync.WaitGroup
	results := make([]Result, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			params := canonicalParams()
			if i%2 == 1 {
				params["rooms"] = -1
			}
			results[i] = h.Handle(context.Background(), request(params))
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if i%2 == 1 {
			assert.Equal(t, StatusError, res.Status)
		} else {
			assert.Equal(t, OK(5), res)
		}
	}
}

func TestResultJSON(t *testing.T) {
	payload, err := json.Marshal(OK(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK","score":0}`, string(payload))

	payload, err = json.Marshal(Failure(KindModelUnavailable, "Model not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"Error","message":"Model not found"}`, string(payload))
}

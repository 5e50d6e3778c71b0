package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"flatprice/db"
	"flatprice/metrics"
	"flatprice/predict"
	"flatprice/validation"
)

const kindMalformedBody predict.ResultKind = "malformed_body"

// Journal persists handled requests. *db.Journal implements it.
type Journal interface {
	Record(ctx context.Context, requestID string, raw map[string]any, res predict.Result) error
	Recent(ctx context.Context, limit int) ([]db.Entry, error)
}

// API holds the collaborators behind the routes. Metrics and Journal are
// optional.
type API struct {
	Handler *predict.Handler
	Metrics *metrics.Collector
	Journal Journal
	Logger  *zap.Logger
}

func (api *API) logger() *zap.Logger {
	if api.Logger == nil {
		return zap.NewNop()
	}
	return api.Logger
}

func RegisterHandlers(mux *http.ServeMux, api *API) {
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /api/health", api.handleHealth)
	mux.HandleFunc("POST /predict", api.handlePredict)
	mux.HandleFunc("GET /api/predictions", api.handlePredictions)
	if api.Metrics != nil {
		mux.Handle("GET /metrics", api.Metrics.Handler())
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the flat price prediction service"})
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"model_loaded": api.Handler.ModelLoaded(),
	})
}

// handlePredict takes the model parameters as the request body. Every
// outcome, including a malformed body, is answered with 200 and a
// {status, score|message} document.
func (api *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	logger := api.logger().With(zap.String("request_id", GetRequestID(r.Context())))
	logger.Debug("processing request")

	var raw map[string]any
	var res predict.Result

	// Model presence is checked before the body, so an absent model wins
	// over a malformed payload.
	if !api.Handler.ModelLoaded() {
		res = api.Handler.Handle(r.Context(), nil)
	} else if body, err := decodeBody(r.Body); err != nil {
		logger.Info("malformed request body", zap.Error(err))
		res = predict.Failure(kindMalformedBody, "Problem with request, invalid JSON body")
	} else {
		raw = map[string]any{validation.EnvelopeKey: body}
		res = api.Handler.Handle(r.Context(), raw)
	}

	if api.Metrics != nil {
		api.Metrics.ObservePrediction(res)
	}
	if api.Journal != nil {
		if err := api.Journal.Record(r.Context(), GetRequestID(r.Context()), raw, res); err != nil {
			logger.Warn("journal record failed", zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, res)
}

func (api *API) handlePredictions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = l
	}

	entries := make([]db.Entry, 0)
	if api.Journal != nil {
		var err error
		entries, err = api.Journal.Recent(r.Context(), limit)
		if err != nil {
			api.logger().Error("journal query failed", zap.Error(err))
			respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load predictions"})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data":  entries,
		"count": len(entries),
	})
}

// decodeBody reads exactly one JSON value, keeping integer and fractional
// numbers apart.
func decodeBody(body io.Reader) (any, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return value, nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

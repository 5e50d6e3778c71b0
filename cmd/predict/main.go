// Command predict scores one request without starting the HTTP server.
//
//	go run ./cmd/predict -model_path ./models/flats_prices_model.json -params request.json
//
// Without -params the built-in sample apartment is used.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"flatprice/ml"
	"flatprice/predict"
	"flatprice/validation"
)

const sampleParams = `{
	"floor": 6,
	"kitchen_area": 8.5,
	"living_area": 30.0,
	"rooms": 2,
	"is_apartment": false,
	"total_area": 50.0,
	"build_year": 1979,
	"building_type_int": 4,
	"latitude": 60.0,
	"longitude": 40.0,
	"ceiling_height": 2.5,
	"flats_count": 190,
	"floors_total": 12,
	"has_elevator": true
}`

func main() {
	modelType := flag.String("model_type", ml.ModelTypeTreeEnsemble, "model type")
	modelPath := flag.String("model_path", "./models/flats_prices_model.json", "trained model path")
	paramsPath := flag.String("params", "", "JSON file with model params (default: sample apartment)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		var err error
		if logger, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("failed to create logger: %v", err)
		}
	}

	payload := []byte(sampleParams)
	if *paramsPath != "" {
		var err error
		if payload, err = os.ReadFile(*paramsPath); err != nil {
			log.Fatalf("failed to read params: %v", err)
		}
	}
	params, err := decodeParams(payload)
	if err != nil {
		log.Fatalf("failed to decode params: %v", err)
	}

	model, err := ml.LoadModel(*modelType, *modelPath)
	if err != nil {
		log.Printf("failed to load model: %v", err)
	}

	handler := predict.NewHandler(model, predict.WithLogger(logger))
	res := handler.Handle(context.Background(), map[string]any{validation.EnvelopeKey: params})

	out, err := json.Marshal(res)
	if err != nil {
		log.Fatalf("failed to encode response: %v", err)
	}
	fmt.Printf("Response: %s\n", out)
	if !res.IsOK() {
		os.Exit(1)
	}
}

func decodeParams(payload []byte) (map[string]any, error) {
	var params map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, err
	}
	return params, nil
}

package predict

import "encoding/json"

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// ResultKind tells apart the terminal states of a request. It is not part
// of the wire format.
type ResultKind string

const (
	KindSuccess           ResultKind = "success"
	KindModelUnavailable  ResultKind = "model_unavailable"
	KindPredictionFailure ResultKind = "prediction_failure"
	KindInternalError     ResultKind = "internal_error"
	// Validation failures use the validation.ErrorKind value as their kind.
)

const (
	msgModelNotFound = "Model not found"
	msgProblemPrefix = "Problem with request, "
	msgInternalError = msgProblemPrefix + "internal error"
)

// Result is the uniform response of the prediction endpoint: either
// {status: OK, score} or {status: Error, message}.
type Result struct {
	Status  string
	Score   float64
	Message string
	Kind    ResultKind
}

func OK(score float64) Result {
	return Result{Status: StatusOK, Score: score, Kind: KindSuccess}
}

func Failure(kind ResultKind, message string) Result {
	return Result{Status: StatusError, Message: message, Kind: kind}
}

func (r Result) IsOK() bool {
	return r.Status == StatusOK
}

type okPayload struct {
	Status string  `json:"status"`
	Score  float64 `json:"score"`
}

type errorPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsOK() {
		return json.Marshal(okPayload{Status: StatusOK, Score: r.Score})
	}
	return json.Marshal(errorPayload{Status: StatusError, Message: r.Message})
}

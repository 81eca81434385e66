package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vietddude/packup/internal/infra/identity"
	"github.com/vietddude/packup/internal/infra/llm"
	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/pipeline"
	"github.com/vietddude/packup/internal/service/chat"
	"github.com/vietddude/packup/internal/service/itinerary"
	"github.com/vietddude/packup/internal/service/logs"
	"github.com/vietddude/packup/internal/service/privacy"
	"github.com/vietddude/packup/internal/service/travel"
)

// Error codes returned in the code field of error bodies.
const (
	CodeImageFetchFailed   = "IMAGE_FETCH_FAILED"
	CodeAuthInvalid        = "AUTH_INVALID"
	CodeBadRequest         = "BAD_REQUEST"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInvalidModelOutput = "OPENAI_INVALID_OUTPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeOffersUnavailable  = "OFFERS_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	OperationID string `json:"operationId"`
	Details     any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	writeJSON(w, status, ErrorBody{
		Code:        code,
		Message:     message,
		OperationID: OperationID(r.Context()),
		Details:     details,
	})
}

// writeFailure maps a service error onto the error taxonomy.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var (
		imgErr    *itinerary.ImageError
		exhausted *pipeline.ExhaustedError
		outErr    *llm.OutputError
		rlErr     *chat.RateLimitError
	)
	switch {
	case errors.Is(err, identity.ErrMissingToken), errors.Is(err, identity.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, CodeAuthInvalid, err.Error(), nil)

	case errors.As(err, &rlErr):
		secs := int(rlErr.Decision.RetryAfter.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "Too many requests", map[string]int{
			"limit":             rlErr.Decision.Limit,
			"retryAfterSeconds": secs,
		})

	case errors.As(err, &imgErr):
		details := map[string]any{"query": imgErr.Query, "day": imgErr.Day}
		if errors.As(err, &exhausted) {
			details["attempts"] = exhausted.Diagnostics
		}
		writeError(w, r, http.StatusBadGateway, CodeImageFetchFailed, imgErr.Error(), details)

	case errors.As(err, &exhausted):
		writeError(w, r, http.StatusBadGateway, CodeImageFetchFailed, "No provider returned image", map[string]any{
			"q":        exhausted.Query,
			"attempts": exhausted.Diagnostics,
		})

	case errors.As(err, &outErr):
		writeError(w, r, http.StatusBadGateway, CodeInvalidModelOutput, "Itinerary validation failed: "+outErr.Reason, nil)

	case errors.Is(err, llm.ErrNoContent), errors.Is(err, llm.ErrMissingKey):
		writeError(w, r, http.StatusBadGateway, CodeInvalidModelOutput, err.Error(), nil)

	case errors.Is(err, itinerary.ErrEmptyDestination),
		errors.Is(err, travel.ErrInvalidRequest),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, logs.ErrEmptyRecord),
		errors.Is(err, privacy.ErrMissingUser),
		errors.Is(err, pipeline.ErrEmptyQuery):
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error(), nil)

	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, CodeNotFound, "Not found", nil)

	case errors.Is(err, travel.ErrNoOffers):
		writeError(w, r, http.StatusBadGateway, CodeOffersUnavailable, err.Error(), nil)

	default:
		slog.Error("request failed", "op", OperationID(r.Context()), "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, CodeInternal, "internal error", nil)
	}
}

// decodeJSON reads a JSON body into dst, capped at 1 MiB.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(dst)
}

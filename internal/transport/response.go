package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	maxBodyBytes = 1 << 20
)

var ErrInvalidBody = apperror.New(apperror.KindValidation, "Invalid request body")

// Envelope is the body of every API response.
type Envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Warn("failed to write response", zap.Error(err))
	}
}

func Success(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{Status: StatusSuccess, Message: message, Data: data})
}

func OK(w http.ResponseWriter, data any) {
	Success(w, http.StatusOK, "", data)
}

// Error renders err using its kind. Internal errors are logged with their
// cause; clients only see it when verbose errors are on.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.FromCtx(r.Context()).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	WriteJSON(w, status, Envelope{
		Status:  StatusError,
		Message: apperror.Message(err, VerboseErrors(r.Context())),
		Errors:  apperror.FieldsOf(err),
	})
}

// Decode reads a JSON body into dst. An empty or malformed body is a
// validation error.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Detail(ErrInvalidBody, "Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.Detail(ErrInvalidBody, "Request body too large")
		}
		return ErrInvalidBody
	}
	return nil
}

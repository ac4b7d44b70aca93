package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/domain/apperr"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps classified errors to their status. Unclassified errors
// are logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "validation failed",
			Errors:  fieldErrors(ve),
		})
		return
	}

	code := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindBadRequest:
		code = http.StatusBadRequest
	case apperr.KindNotFound:
		code = http.StatusNotFound
	case apperr.KindUnauthorized:
		code = http.StatusForbidden
	}
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, code, errorResponse{Code: code, Message: "internal error"})
		return
	}
	writeJSON(w, code, errorResponse{Code: code, Message: apperr.Message(err)})
}

func fieldErrors(ve validator.ValidationErrors) []string {
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			out = append(out, fe.Field()+" is required")
		case "max":
			out = append(out, fe.Field()+" must be at most "+fe.Param()+" characters")
		default:
			out = append(out, fe.Field()+" is invalid")
		}
	}
	return out
}

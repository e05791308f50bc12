// Package handler implements the API route handlers.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/folioapp/api/internal/infra/http/middleware"
	"github.com/folioapp/api/pkg/apierror"
	"github.com/folioapp/api/pkg/logger"
	"github.com/folioapp/api/pkg/validator"
)

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps an error to its API shape and writes it. Validation
// errors keep their field detail; anything unrecognized becomes a
// sanitized 500 with the cause logged server-side only.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var verrs *validator.ValidationErrors
	if errors.As(err, &verrs) {
		apierror.ValidationFailed("Validation failed", verrs.Errors).
			WriteJSONWithRequestID(w, requestID)
		return
	}

	apiErr := apierror.FromError(err)
	if apiErr.Status >= 500 || apiErr.Err != nil {
		log.WithContext(r.Context()).Error("request failed",
			"path", r.URL.Path,
			"status", apiErr.Status,
			"error", err.Error(),
		)
	}

	apiErr.WriteJSONWithRequestID(w, requestID)
}

// decodeJSON decodes a request body, rejecting unknown fields and
// trailing garbage.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apierror.BadRequest("Invalid JSON body").WithError(err)
	}
	if dec.More() {
		return apierror.BadRequest("Invalid JSON body")
	}
	return nil
}

package utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"salonq/models"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"message": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// StatusFor maps a domain error to the HTTP status presentation clients expect.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// RespondWithDomainError writes err with its mapped status. Internal errors are logged
// and replaced by a generic message.
func RespondWithDomainError(w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		RespondWithError(w, code, "internal error")
		return
	}
	RespondWithError(w, code, err.Error())
}

// DecodeJSON reads a JSON body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hackgods/registry-scheduling/internal/appointment"
	"github.com/hackgods/registry-scheduling/internal/domain"
	redisclient "github.com/hackgods/registry-scheduling/internal/redis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeServiceError maps the scheduling error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		conflict    *domain.ConflictError
		notFound    *domain.NotFoundError
		unsupported *domain.UnsupportedOperationError
		regErr      *domain.RegistryError
		authErr     *domain.AuthError
		trErr       *domain.TransportError
		invalid     *domain.ValidationError
	)

	switch {
	case errors.As(err, &conflict):
		existing := conflict.Existing
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:    "appointment_conflict",
			Details:  err.Error(),
			Conflict: &existing,
		})
	case errors.Is(err, appointment.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, strings.ReplaceAll(notFound.Kind, " ", "_")+"_not_found", err.Error())
	case errors.As(err, &unsupported):
		writeError(w, http.StatusNotImplemented, "unsupported_operation", err.Error())
	case errors.As(err, &regErr):
		writeError(w, http.StatusUnprocessableEntity, "registry_rejected", regErr.Description)
	case errors.As(err, &authErr):
		writeError(w, http.StatusBadGateway, "registry_auth_failed", err.Error())
	case errors.As(err, &trErr):
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, "registry_timeout", err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, "registry_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

package validators

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tapify/tapify-backend/pkg/enums"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
)

// ParseLedgerStatus reads the status query parameter; blank means pending.
func ParseLedgerStatus(r *http.Request) (enums.LedgerStatusFilter, error) {
	raw := r.URL.Query().Get("status")
	filter, err := enums.ParseLedgerStatusFilter(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "status must be one of pending, paid, all").
			WithDetails(map[string]any{"field": "status", "value": raw})
	}
	return filter, nil
}

// ParseUUIDParam reads a chi route parameter as a uuid.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, name+" is required").
			WithDetails(map[string]any{"field": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, name+" must be a valid uuid").
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/touchline/internal/database"
	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/server/middleware"
	"github.com/faucetdb/touchline/internal/service"
)

// writeJSON serializes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope. The optional ctx map adds
// context fields such as the offending field name.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// writeServiceError maps a service or database error to a response. Driver
// messages are logged and never returned to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *fieldmap.ValidationError
	var de *database.Error
	var mbe *http.MaxBytesError

	switch {
	case errors.As(err, &ve):
		ctx := map[string]interface{}{}
		if ve.Field != "" {
			ctx["field"] = ve.Field
		}
		if ve.Value != "" {
			ctx["value"] = ve.Value
		}
		if len(ctx) == 0 {
			ctx = nil
		}
		writeError(w, http.StatusBadRequest, ve.Error(), ctx)
	case errors.As(err, &mbe):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, service.ErrAuthFailure):
		writeError(w, http.StatusUnauthorized, "authentication failed")
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "insufficient role")
	case errors.Is(err, service.ErrUnknownEntity):
		writeError(w, http.StatusNotFound, "unknown entity")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrReadOnly):
		writeError(w, http.StatusMethodNotAllowed, "entity is read-only")
	case errors.Is(err, service.ErrImageHost):
		writeError(w, http.StatusBadRequest, "image host not allowed")
	case errors.Is(err, context.Canceled):
		// The client went away; nothing useful can be written.
	case errors.As(err, &de):
		code, msg := classifyDBError(de.Err)
		if code >= 500 {
			logger.Error("database operation failed", "op", de.Op, "error", de.Err,
				"request_id", middleware.GetRequestID(r.Context()))
		}
		writeError(w, code, msg)
	default:
		logger.Error("request failed", "error", err,
			"request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// classifyDBError maps common constraint failures to client errors. The
// returned message is generic.
func classifyDBError(err error) (int, string) {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry") ||
		strings.Contains(lower, "violation of unique") ||
		strings.Contains(lower, "ora-00001"):
		return http.StatusConflict, "record conflicts with an existing record"

	case strings.Contains(lower, "not null constraint") ||
		strings.Contains(lower, "cannot insert null") ||
		strings.Contains(lower, "null value in column") ||
		strings.Contains(lower, "column cannot be null") ||
		strings.Contains(lower, "ora-01400"):
		return http.StatusBadRequest, "a required value is missing"

	case strings.Contains(lower, "foreign key") ||
		strings.Contains(lower, "fk constraint") ||
		strings.Contains(lower, "ora-02291") ||
		strings.Contains(lower, "ora-02292"):
		return http.StatusConflict, "record references, or is referenced by, another record"

	case strings.Contains(lower, "check constraint"):
		return http.StatusBadRequest, "a value violates a constraint"

	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// readJSON decodes the request body into v and closes it.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return err
		}
		return &fieldmap.ValidationError{Reason: "malformed JSON body: " + err.Error()}
	}
	return nil
}

// readPayload decodes the body as an ordered field payload.
func readPayload(r *http.Request) (fieldmap.Payload, error) {
	defer r.Body.Close()
	return fieldmap.DecodePayload(r.Body)
}

// pathID parses the {name} URL parameter as a record key.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &fieldmap.ValidationError{Field: name, Value: raw, Reason: "expected an integer key"}
	}
	return id, nil
}

// callerID returns the user id asserted by the request's token.
func callerID(r *http.Request) (int64, error) {
	c := middleware.GetClaims(r.Context())
	if c == nil {
		return 0, service.ErrInvalidToken
	}
	return c.UserID()
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// queryBool is true for "true" or "1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

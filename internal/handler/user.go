package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/faucetdb/touchline/internal/fieldmap"
	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/service"
)

// UserHandler serves account self-service and administration.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// Register creates an account with the default role.
// POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	payload, err := readPayload(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.users.Register(r.Context(), payload, false)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Me returns the caller's profile.
// GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.users.Profile(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateMe changes the caller's name, phone or icon.
// PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	payload, err := readPayload(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.users.ChangeAttributes(r.Context(), id, payload)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangePassword replaces the caller's secret after confirming the current
// one.
// PUT /api/v1/users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req model.PasswordChangeRequest
	if err := readJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.users.ChangePassword(r.Context(), id, req.Password, req.NewPassword); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteMe removes the caller's account after confirming its secret.
// DELETE /api/v1/users/me
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req model.SecretConfirmation
	if err := readJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.users.DeleteAccount(r.Context(), id, req.Password); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SaveImage stores the caller's icon URL and the URL that deletes it.
// PUT /api/v1/users/me/image
func (h *UserHandler) SaveImage(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	var req model.ImageRequest
	if err := readJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Icon) == "" {
		writeServiceError(w, r, h.logger, &fieldmap.ValidationError{Field: "icon", Reason: "is required"})
		return
	}
	if err := h.users.SaveImage(r.Context(), id, req.Icon, req.DeleteIcon); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImageDeleteURL returns the stored delete URL of the caller's icon.
// GET /api/v1/users/me/image
func (h *UserHandler) ImageDeleteURL(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	del, err := h.users.DeleteImageURL(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ImageRequest{DeleteIcon: del})
}

// DeleteImage deletes the caller's icon at the image host.
// DELETE /api/v1/users/me/image
func (h *UserHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.users.DeleteImage(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminList pages through accounts, optionally filtered by q.
// GET /api/v1/admin/users
func (h *UserHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", DefaultPageSize), 1, service.MaxListLimit)
	offset := max(queryInt(r, "offset", 0), 0)

	users, total, err := h.users.AdminList(r.Context(), r.URL.Query().Get("q"), limit, offset)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: users,
		Meta: &model.ResponseMeta{
			Count:  len(users),
			Total:  &total,
			Limit:  limit,
			Offset: offset,
		},
	})
}

// AdminUpdate changes any attribute of an account, including its role.
// PATCH /api/v1/admin/users/{id}
func (h *UserHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	payload, err := readPayload(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	u, err := h.users.AdminChangeAttributes(r.Context(), id, payload)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// AdminDelete removes a batch of accounts, all or none.
// DELETE /api/v1/admin/users
func (h *UserHandler) AdminDelete(w http.ResponseWriter, r *http.Request) {
	var req model.BatchDeleteRequest
	if err := readJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	n, err := h.users.AdminDelete(r.Context(), req.UserIDs)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.AffectedResponse{Affected: n})
}

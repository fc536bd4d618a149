package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/touchline/internal/model"
	"github.com/faucetdb/touchline/internal/query"
	"github.com/faucetdb/touchline/internal/service"
)

// DefaultPageSize is the list limit when the client gives none.
const DefaultPageSize = 25

// reservedListParams are query parameters that are not column filters.
var reservedListParams = map[string]bool{
	"fields":        true,
	"order":         true,
	"q":             true,
	"limit":         true,
	"offset":        true,
	"include_count": true,
}

// EntityHandler serves generic CRUD over catalog entities.
type EntityHandler struct {
	svc    *service.EntityService
	logger *slog.Logger
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(svc *service.EntityService, logger *slog.Logger) *EntityHandler {
	return &EntityHandler{svc: svc, logger: logger}
}

// ListEntities returns the public entity names and shapes.
// GET /api/v1/entities
func (h *EntityHandler) ListEntities(w http.ResponseWriter, r *http.Request) {
	public := h.svc.Catalog().Public()
	out := make([]model.EntitySummary, len(public))
	for i, e := range public {
		out[i] = model.SummarizeEntity(e)
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: out})
}

// DescribeEntity returns the field whitelist of one entity.
// GET /api/v1/entities/{entity}
func (h *EntityHandler) DescribeEntity(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Entity(chi.URLParam(r, "entity"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.DescribeEntity(e))
}

// List returns a page of records. Every query parameter other than fields,
// order, q, limit, offset and include_count is an equality filter.
// GET /api/v1/{entity}
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "entity")

	q := r.URL.Query()
	opts := service.ListOptions{
		Search:       q.Get("q"),
		Order:        q.Get("order"),
		Limit:        clampInt(queryInt(r, "limit", DefaultPageSize), 1, service.MaxListLimit),
		Offset:       max(queryInt(r, "offset", 0), 0),
		IncludeTotal: queryBool(r, "include_count"),
	}
	if raw := q.Get("fields"); raw != "" {
		fields, err := query.ParseFieldSelection(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid fields parameter",
				map[string]interface{}{"field": "fields", "value": raw})
			return
		}
		opts.Fields = fields
	}
	for k, v := range q {
		if reservedListParams[k] || len(v) == 0 {
			continue
		}
		if opts.Filters == nil {
			opts.Filters = make(map[string]string)
		}
		opts.Filters[k] = v[0]
	}

	res, err := h.svc.List(r.Context(), name, opts)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "application/x-ndjson") {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		enc := json.NewEncoder(w)
		for _, rec := range res.Records {
			if err := enc.Encode(rec); err != nil {
				return
			}
		}
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: res.Records,
		Meta: &model.ResponseMeta{
			Count:  len(res.Records),
			Total:  res.Total,
			Limit:  opts.Limit,
			Offset: opts.Offset,
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	})
}

// Get returns one record by key.
// GET /api/v1/{entity}/{id}
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "entity"), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Create inserts one record and returns its key.
// POST /api/v1/{entity}
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	e, err := h.svc.Entity(name)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	payload, err := readPayload(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	id, err := h.svc.Create(r.Context(), name, payload)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.CreatedResponse{Entity: e.Name, Key: e.Key, ID: id})
}

// Update assigns the recognized fields of the body to one record.
// PATCH /api/v1/{entity}/{id}
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.Update(r.Context(), chi.URLParam(r, "entity"), id, payload); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.AffectedResponse{Affected: 1})
}

// Delete removes one record.
// DELETE /api/v1/{entity}/{id}
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "entity"), id); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.AffectedResponse{Affected: 1})
}

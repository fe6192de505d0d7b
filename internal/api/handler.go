package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/serrors"
)

type handler struct {
	checker  Checker
	maxBatch int
}

type checkRequest struct {
	Domains []string `json:"domains"`
}

type checkResponse struct {
	Results map[string]availability.Record `json:"results"`
}

type pricingResponse struct {
	Provider string                  `json:"provider"`
	Pricing  map[string]pricing.Info `json:"pricing"`
	// Error is set when a refresh failed and Pricing holds only what was
	// already known.
	Error string `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) checkMultiple(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, serrors.Wrap(serrors.ErrBadRequest, err, "invalid request body"))
		return
	}
	if len(req.Domains) == 0 {
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "domains must not be empty"))
		return
	}
	if len(req.Domains) > h.maxBatch {
		writeError(w, r, serrors.With(serrors.ErrBadRequest, "too many domains: %d (max %d)", len(req.Domains), h.maxBatch))
		return
	}

	writeJSON(w, http.StatusOK, checkResponse{Results: h.checker.CheckMultiple(r.Context(), req.Domains)})
}

func (h *handler) checkSingle(w http.ResponseWriter, r *http.Request) {
	rec, err := h.checker.Lookup(r.Context(), r.PathValue("name"), r.PathValue("extension"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) more(w http.ResponseWriter, r *http.Request) {
	var skip []string
	if s := r.URL.Query().Get("skip"); s != "" {
		skip = strings.Split(s, ",")
	}
	results := h.checker.CheckMoreExtensions(r.Context(), r.PathValue("name"), skip)
	writeJSON(w, http.StatusOK, checkResponse{Results: results})
}

func (h *handler) pricing(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")

	var exts []string
	for _, v := range r.URL.Query()["extension"] {
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				exts = append(exts, e)
			}
		}
	}

	table, err := h.checker.Pricing(r.Context(), provider, exts...)
	if err != nil && len(table) == 0 {
		writeError(w, r, err)
		return
	}

	resp := pricingResponse{Provider: provider, Pricing: table}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StatusCode maps an error's semantic kind to an HTTP status.
func StatusCode(err error) int {
	switch k := serrors.KindOf(err); {
	case k == nil:
		return http.StatusInternalServerError
	case errors.Is(k, serrors.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(k, serrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(k, serrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(k, serrors.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(k, serrors.ErrUnavailable), errors.Is(k, serrors.ErrMalformed):
		return http.StatusBadGateway
	case errors.Is(k, serrors.ErrConfig):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

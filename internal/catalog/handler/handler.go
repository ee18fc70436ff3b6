// Package handler exposes name resolution and cache inspection over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sbname/internal/catalog/cache"
	"sbname/internal/catalog/models"
	"sbname/internal/catalog/service"
	"sbname/pkg/domain"
	dErrors "sbname/pkg/domain-errors"
	"sbname/pkg/platform/httputil"
	"sbname/pkg/requestcontext"
)

// MaxBatchCodes bounds a single POST /names/resolve request.
const MaxBatchCodes = 100

// Resolver resolves product codes to display names.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (models.Result, error)
	ResolveAll(ctx context.Context, raws []string) []service.Resolution
}

// CacheStore is the cache surface used by the inspection endpoints.
type CacheStore interface {
	HasSupport() bool
	Get(code string) (models.CachedRecord, error)
	List() []models.CachedRecord
	Remove(code string) bool
	Persist(ctx context.Context) error
}

// Handler handles HTTP requests for name lookups.
type Handler struct {
	resolver Resolver
	cache    CacheStore
	logger   *slog.Logger
}

// New creates a handler. cache may be nil when the service runs without one.
func New(resolver Resolver, cache CacheStore, logger *slog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		cache:    cache,
		logger:   logger,
	}
}

// Register mounts the handler routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/names/{code}", h.HandleResolve)
	r.Post("/names/resolve", h.HandleResolveBatch)
	r.Get("/cache", h.HandleCacheList)
	r.Get("/cache/{code}", h.HandleCacheGet)
	r.Delete("/cache/{code}", h.HandleCacheDelete)
}

// NameResponse is one resolved name.
type NameResponse struct {
	Code         string `json:"code"`
	Found        bool   `json:"found"`
	Name         string `json:"name,omitempty"`
	ExtendedName string `json:"extended_name,omitempty"`
	Formatted    string `json:"formatted,omitempty"`
	Source       string `json:"source,omitempty"`
}

func toNameResponse(r models.Result) NameResponse {
	return NameResponse{
		Code:         r.Code,
		Found:        r.Found(),
		Name:         r.Record.Name,
		ExtendedName: r.Record.ExtendedName,
		Formatted:    r.Formatted,
		Source:       string(r.Source),
	}
}

// HandleResolve handles GET /names/{code}.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := chi.URLParam(r, "code")

	result, err := h.resolver.Resolve(ctx, raw)
	if err != nil {
		h.logger.WarnContext(ctx, "name resolution failed",
			"code", raw,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if !result.Found() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no product matches code"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toNameResponse(result))
}

// ResolveRequest is the body of POST /names/resolve.
type ResolveRequest struct {
	Codes []string `json:"codes"`
}

// Validate bounds the batch size.
func (r *ResolveRequest) Validate() error {
	if len(r.Codes) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "codes is required")
	}
	if len(r.Codes) > MaxBatchCodes {
		return dErrors.New(dErrors.CodeBadRequest, "too many codes in one request")
	}
	return nil
}

// BatchItem is the outcome for one input of a batch.
type BatchItem struct {
	Input string `json:"input"`
	NameResponse
	Error string `json:"error,omitempty"`
}

// BatchResponse lists batch outcomes in request order.
type BatchResponse struct {
	Results []BatchItem `json:"results"`
}

// HandleResolveBatch handles POST /names/resolve. Per-code failures are
// reported inline; the response status is 200 whenever the body was valid.
func (h *Handler) HandleResolveBatch(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[ResolveRequest](w, r, h.logger)
	if !ok {
		return
	}

	resolutions := h.resolver.ResolveAll(r.Context(), req.Codes)
	resp := BatchResponse{Results: make([]BatchItem, 0, len(resolutions))}
	for _, res := range resolutions {
		item := BatchItem{Input: res.Input, NameResponse: toNameResponse(res.Result)}
		if res.Err != nil {
			item.Error = httputil.DomainCodeToHTTPCode(errorCode(res.Err))
		}
		resp.Results = append(resp.Results, item)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// CacheEntry is one cached record.
type CacheEntry struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ExtendedName string `json:"extended_name"`
}

// CacheListResponse is the body of GET /cache.
type CacheListResponse struct {
	Entries []CacheEntry `json:"entries"`
}

// HandleCacheList handles GET /cache.
func (h *Handler) HandleCacheList(w http.ResponseWriter, _ *http.Request) {
	if !h.cacheAvailable(w) {
		return
	}
	records := h.cache.List()
	resp := CacheListResponse{Entries: make([]CacheEntry, 0, len(records))}
	for _, rec := range records {
		resp.Entries = append(resp.Entries, toCacheEntry(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleCacheGet handles GET /cache/{code}.
func (h *Handler) HandleCacheGet(w http.ResponseWriter, r *http.Request) {
	code, ok := h.cacheCode(w, r)
	if !ok {
		return
	}
	rec, err := h.cache.Get(code.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCacheEntry(rec))
}

// HandleCacheDelete handles DELETE /cache/{code}. The removal is persisted
// before the response is written.
func (h *Handler) HandleCacheDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, ok := h.cacheCode(w, r)
	if !ok {
		return
	}
	if !h.cache.Remove(code.String()) {
		httputil.WriteError(w, cache.ErrNotFound)
		return
	}
	if err := h.cache.Persist(ctx); err != nil {
		h.logger.ErrorContext(ctx, "failed to persist cache after removal",
			"code", code.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist cache"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) cacheAvailable(w http.ResponseWriter) bool {
	if h.cache == nil || !h.cache.HasSupport() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "lookup cache is not available"))
		return false
	}
	return true
}

func (h *Handler) cacheCode(w http.ResponseWriter, r *http.Request) (domain.ProductCode, bool) {
	if !h.cacheAvailable(w) {
		return "", false
	}
	code, err := domain.ParseExactCode(chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return code, true
}

func toCacheEntry(rec models.CachedRecord) CacheEntry {
	return CacheEntry{Code: rec.Code, Name: rec.Name, ExtendedName: rec.ExtendedName}
}

func errorCode(err error) dErrors.Code {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return dErrors.CodeInternal
}

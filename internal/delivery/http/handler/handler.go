package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/crawl-engine/internal/delivery/http/request"
	"github.com/user/crawl-engine/internal/delivery/http/response"
	"github.com/user/crawl-engine/internal/entity"
	"github.com/user/crawl-engine/internal/usecase"
)

// Crawl is the view of a running crawl exposed over HTTP.
type Crawl interface {
	Snapshot() entity.CrawlSummary
	Seed(ctx context.Context, raw string) error
}

type Handler struct {
	crawl  Crawl
	logger *zap.Logger
}

func NewHandler(crawl Crawl, logger *zap.Logger) *Handler {
	return &Handler{
		crawl:  crawl,
		logger: logger,
	}
}

func (h *Handler) HandleSubmitSeeds(w http.ResponseWriter, r *http.Request) {
	var req request.SeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	seeds := req.All()
	if len(seeds) == 0 {
		h.writeJSONError(w, "At least one URL is required", http.StatusBadRequest)
		return
	}

	// Nothing is enqueued unless every URL is valid.
	for _, seed := range seeds {
		if _, err := entity.NewURL(seed, 0); err != nil {
			h.writeJSONError(w, "Invalid URL: "+seed, http.StatusBadRequest)
			return
		}
	}

	accepted := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		err := h.crawl.Seed(r.Context(), seed)
		switch {
		case err == nil:
			accepted = append(accepted, seed)
		case errors.Is(err, usecase.ErrInvalidSeed):
			h.writeJSONError(w, "Invalid URL: "+seed, http.StatusBadRequest)
			return
		case errors.Is(err, usecase.ErrCrawlStopped):
			h.writeJSONError(w, err.Error(), http.StatusConflict)
			return
		default:
			h.logger.Error("failed to add seed", zap.String("url", seed), zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	h.writeJSON(w, http.StatusAccepted, response.SeedResponse{
		Status:   "success",
		Message:  "URLs accepted for crawling",
		Accepted: accepted,
	})
}

func (h *Handler) HandleGetCrawlStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.crawl.Snapshot())
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, response.HealthResponse{
		Status: "ok",
		State:  h.crawl.Snapshot().State,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/metrics"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
	"github.com/DhruvParmar051/book-recommendation-system/internal/recommend"
	"github.com/goccy/go-json"
)

// Recommender serves ranked recommendations.
type Recommender interface {
	Ready() bool
	Recommend(ctx context.Context, query string, topK int) ([]recommend.Result, error)
}

// Browser pages through stored records.
type Browser interface {
	Browse(ctx context.Context, q catalog.BrowseQuery) (int, []models.Book, error)
}

type Handler struct {
	recommender Recommender
	books       Browser
}

func New(recommender Recommender, books Browser) *Handler {
	return &Handler{
		recommender: recommender,
		books:       books,
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Debug(message, "status", code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(errorResponse{Detail: message}); err != nil {
		slog.Error("Unable to encode error response", "err", err)
	}
}

// HandleHealthcheck reports liveness and whether recommendations are ready.
func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]any{
		"status":             "ok",
		"recommender_loaded": h.recommender != nil && h.recommender.Ready(),
	})
}

// Metrics counts every request by method, route and status code.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		metrics.RecordAPIRequest(r.Method, r.URL.Path, strconv.Itoa(wrapper.statusCode))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

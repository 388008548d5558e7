package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DhruvParmar051/book-recommendation-system/internal/catalog"
	"github.com/DhruvParmar051/book-recommendation-system/internal/models"
)

const maxBrowseLimit = 100

type browseResponse struct {
	Total int           `json:"total"`
	Items []models.Book `json:"items"`
}

// HandleBooks serves GET /books with optional search_field/query filtering.
func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	skip, err := intParam(q.Get("skip"), 0)
	if err != nil || skip < 0 {
		h.writeError(w, "Invalid skip", http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), 10)
	if err != nil || limit < 1 || limit > maxBrowseLimit {
		h.writeError(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	total, books, err := h.books.Browse(r.Context(), catalog.BrowseQuery{
		Field: q.Get("search_field"),
		Query: q.Get("query"),
		Skip:  skip,
		Limit: limit,
	})
	if errors.Is(err, catalog.ErrInvalidField) {
		h.writeError(w, "Invalid search_field", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to browse books: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if books == nil {
		books = []models.Book{}
	}

	h.writeJSON(w, browseResponse{Total: total, Items: books})
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

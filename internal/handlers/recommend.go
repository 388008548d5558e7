package handlers

import (
	"errors"
	"net/http"

	"github.com/DhruvParmar051/book-recommendation-system/internal/recommend"
	"github.com/goccy/go-json"
)

type recommendRequest struct {
	Query string `json:"query"`
	TopK  *int   `json:"top_k"`
}

type recommendItem struct {
	RecordID  string   `json:"record_id"`
	Title     string   `json:"title,omitempty"`
	Authors   []string `json:"authors,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Year      *int     `json:"year,omitempty"`
	Subjects  []string `json:"subjects,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	Pages     string   `json:"pages,omitempty"`
	ISBN      string   `json:"isbn,omitempty"`
	Score     float64  `json:"score"`
}

// HandleRecommend serves POST /recommend.
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	if h.recommender == nil || !h.recommender.Ready() {
		h.writeError(w, recommend.ErrNotReady.Error(), http.StatusServiceUnavailable)
		return
	}

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	topK := recommend.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}

	results, err := h.recommender.Recommend(r.Context(), req.Query, topK)
	switch {
	case errors.Is(err, recommend.ErrNotReady):
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, recommend.ErrInvalidRequest):
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.writeError(w, "Recommendation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]recommendItem, len(results))
	for i, res := range results {
		b := res.Book
		items[i] = recommendItem{
			RecordID:  res.RecordID,
			Title:     b.Title,
			Authors:   b.Authors,
			Publisher: b.Publisher,
			Year:      b.Year,
			Subjects:  b.Subjects,
			Summary:   b.Summary,
			Pages:     b.Pages,
			ISBN:      b.ISBN,
			Score:     res.FinalScore,
		}
	}
	h.writeJSON(w, items)
}

// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_engine/internal/app"
	"review_engine/internal/domain"
)

const sourceHeader = "X-Data-Source"

type Handlers struct {
	Q *app.QueryService
	M *app.ModerationService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type reviewsPage struct {
	Listing string          `json:"listing,omitempty"`
	Count   int             `json:"count"`
	Reviews []domain.Review `json:"reviews"`
}

type approvalBody struct {
	Approved *bool `json:"approved"`
}

type approvalResponse struct {
	ID       int64  `json:"id"`
	Listing  string `json:"listing"`
	Approved bool   `json:"approved"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/reviews", h.listReviews)
	s.mux.Get("/v1/reviews/stats", h.getStats)
	s.mux.Get("/v1/reviews/listings", h.listListings)
	s.mux.Get("/v1/reviews/trends", h.getTrends)
	s.mux.Get("/v1/reviews/{id}", h.getReview)
	s.mux.Put("/v1/reviews/{id}/approval", h.putApproval)
	s.mux.Get("/v1/listings/{listing}/public", h.listPublic)
	s.mux.Get("/v1/listings/{listing}/moderation", h.getModeration)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeData answers 503 for unavailable data and otherwise writes v with a weak ETag,
// short-circuiting to 304 when the client already holds this version.
func writeData(w http.ResponseWriter, r *http.Request, src domain.DataSource, v any) {
	w.Header().Set(sourceHeader, string(src))
	if src == domain.SourceUnavailable {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "review data is temporarily unavailable")
		return
	}

	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write response body")
	}
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func listingParam(r *http.Request) string {
	raw := chi.URLParam(r, "listing")
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := domain.ReviewQuery{
		Listing: qs.Get("listing"),
		Text:    qs.Get("q"),
		Sort:    domain.SortNewest,
	}
	if mr := qs.Get("minRating"); mr != "" {
		f, err := strconv.ParseFloat(mr, 64)
		if err != nil || f < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid minRating", "minRating must be a non-negative number")
			return
		}
		q.MinRating = &f
	}
	switch s := strings.ToLower(qs.Get("sort")); s {
	case "", string(domain.SortNewest):
	case string(domain.SortHighest):
		q.Sort = domain.SortHighest
	default:
		writeProblem(w, http.StatusBadRequest, "Invalid sort", "sort must be newest or highest")
		return
	}

	out, src := h.Q.Reviews(r.Context(), q)
	writeData(w, r, src, reviewsPage{Listing: q.Listing, Count: len(out), Reviews: out})
}

func (h *Handlers) getStats(w http.ResponseWriter, r *http.Request) {
	st, src := h.Q.Stats(r.Context(), r.URL.Query().Get("listing"))
	writeData(w, r, src, st)
}

func (h *Handlers) listListings(w http.ResponseWriter, r *http.Request) {
	ls, src := h.Q.Listings(r.Context())
	writeData(w, r, src, ls)
}

func (h *Handlers) getTrends(w http.ResponseWriter, r *http.Request) {
	rep, src := h.Q.Trends(r.Context(), r.URL.Query().Get("listing"))
	writeData(w, r, src, rep)
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	rv, src, err := h.Q.Review(r.Context(), id)
	if err != nil && src != domain.SourceUnavailable {
		w.Header().Set(sourceHeader, string(src))
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
		return
	}
	writeData(w, r, src, rv)
}

func (h *Handlers) putApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	var body approvalBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	if err := dec.Decode(&body); err != nil || body.Approved == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `expected {"approved": true|false}`)
		return
	}

	rv, err := h.M.SetApproval(r.Context(), id, *body.Approved)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "review not found")
		return
	case errors.Is(err, app.ErrNoApprovalStore):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "moderation is not configured")
		return
	case err != nil:
		log.Error().Err(err).Int64("review_id", id).Msg("approval update failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not update approval")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(approvalResponse{ID: rv.ID, Listing: rv.Listing, Approved: *body.Approved}); err != nil {
		log.Error().Err(err).Msg("failed to write approval body")
	}
}

func (h *Handlers) listPublic(w http.ResponseWriter, r *http.Request) {
	listing := listingParam(r)
	out, src, err := h.Q.PublicReviews(r.Context(), listing)
	if err != nil {
		log.Error().Err(err).Str("listing", listing).Msg("public reviews lookup failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not load approvals")
		return
	}
	writeData(w, r, src, reviewsPage{Listing: listing, Count: len(out), Reviews: out})
}

func (h *Handlers) getModeration(w http.ResponseWriter, r *http.Request) {
	listing := listingParam(r)
	out, src, err := h.Q.ModerationSummary(r.Context(), listing)
	if err != nil {
		log.Error().Err(err).Str("listing", listing).Msg("moderation summary failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not load approvals")
		return
	}
	writeData(w, r, src, out)
}

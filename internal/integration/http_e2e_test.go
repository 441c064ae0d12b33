//go:build integration || !unit

package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"review_engine/internal/adapters/fallback"
	"review_engine/internal/adapters/hostaway"
	server "review_engine/internal/adapters/http_server"
	redisad "review_engine/internal/adapters/redis"
	"review_engine/internal/app"
	"review_engine/internal/domain"
	"review_engine/internal/storage/sqlite"
)

// ---------- helpers ----------

const upstreamBody = `{
  "status": "success",
  "result": [
    {"id": 1, "type": "guest-to-host", "status": "published", "rating": 9,
     "publicReview": "Spotless flat", "submittedAt": "2024-01-10 10:00:00",
     "guestName": "Ana", "listingName": "2B N1 A - 29 Shoreditch Heights", "channel": "airbnb"},
    {"id": 2, "type": "guest-to-host", "status": "published", "rating": null,
     "reviewCategory": [{"category": "cleanliness", "rating": 6}, {"category": "value", "rating": 7}],
     "publicReview": "Noisy street, noisy neighbours", "submittedAt": "15/02/2024",
     "guestName": "Ben", "listingName": "2B N1 A - 29 Shoreditch Heights"},
    {"id": 3, "type": "guest-to-host", "status": "published", "rating": 4,
     "publicReview": "Noisy and cold", "submittedAt": "2024-03-01T08:00:00Z",
     "guestName": "Cara", "listingName": "1B W3 C - 7 Camden Lofts"}
  ]
}`

type stack struct {
	api      *httptest.Server
	upstream *httptest.Server
	calls    *atomic.Int32
	fail     *atomic.Bool
	redis    *miniredis.Miniredis
}

func startStack(t *testing.T) *stack {
	t.Helper()
	var calls atomic.Int32
	var fail atomic.Bool

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if fail.Load() || r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(upstreamBody))
	}))
	t.Cleanup(upstream.Close)

	client, err := hostaway.New(upstream.URL, "61148", "test-key", 100)
	if err != nil {
		t.Fatalf("hostaway.New: %v", err)
	}
	repo := app.NewReviewRepository(client,
		fallback.New(filepath.Join("..", "..", "data", "hostaway.json")),
		app.WithFetchTimeout(5*time.Second),
	)

	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cache.Close() })

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "approvals.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{
		Q: app.NewQueryService(repo, cache, store, time.Minute),
		M: app.NewModerationService(repo, store),
	})
	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)

	return &stack{api: api, upstream: upstream, calls: &calls, fail: &fail, redis: mr}
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if out != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res
}

// ---------- the tests ----------

func TestHTTP_EndToEnd_LiveReviews(t *testing.T) {
	s := startStack(t)

	var page struct {
		Count   int             `json:"count"`
		Reviews []domain.Review `json:"reviews"`
	}
	res := getJSON(t, s.api.URL+"/v1/reviews", &page)
	if res.StatusCode != http.StatusOK || res.Header.Get("X-Data-Source") != "live" {
		t.Fatalf("status %d source %q", res.StatusCode, res.Header.Get("X-Data-Source"))
	}
	if page.Count != 3 || page.Reviews[0].ID != 3 {
		t.Fatalf("expected 3 reviews newest first, got %+v", page)
	}

	// derived rating and normalized date on review 2
	var rv domain.Review
	getJSON(t, s.api.URL+"/v1/reviews/2", &rv)
	if rv.Rating == nil || *rv.Rating != 6.5 {
		t.Fatalf("expected derived rating 6.5, got %v", rv.Rating)
	}
	if !rv.SubmittedAt.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %s", rv.SubmittedAt)
	}

	var st domain.Stats
	getJSON(t, s.api.URL+"/v1/reviews/stats", &st)
	if st.TotalReviews != 3 || st.TotalListings != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	if n := s.calls.Load(); n != 1 {
		t.Fatalf("expected the batch to be cached after one upstream call, got %d", n)
	}
}

func TestHTTP_EndToEnd_TrendsCachedInRedis(t *testing.T) {
	s := startStack(t)

	var rep domain.TrendReport
	getJSON(t, s.api.URL+"/v1/reviews/trends", &rep)
	if !rep.EnoughData || len(rep.Monthly) != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if len(rep.Issues) == 0 || rep.Issues[0].Word != "noisy" || rep.Issues[0].Count != 3 {
		t.Fatalf("unexpected issues %+v", rep.Issues)
	}
	if !s.redis.Exists(redisad.KeyPrefix + "trends:all") {
		t.Fatalf("expected live report to be cached in redis, keys=%v", s.redis.Keys())
	}
}

func TestHTTP_EndToEnd_FallbackWhenUpstreamRejects(t *testing.T) {
	s := startStack(t)
	s.fail.Store(true)

	var page struct {
		Count int `json:"count"`
	}
	res := getJSON(t, s.api.URL+"/v1/reviews?listing=Camden", &page)
	if res.StatusCode != http.StatusOK || res.Header.Get("X-Data-Source") != "fallback" {
		t.Fatalf("status %d source %q", res.StatusCode, res.Header.Get("X-Data-Source"))
	}
	if page.Count != 2 {
		t.Fatalf("expected the two Camden reviews from the fallback dataset, got %d", page.Count)
	}

	getJSON(t, s.api.URL+"/v1/reviews/trends", nil)
	if s.redis.Exists(redisad.KeyPrefix + "trends:all") {
		t.Fatalf("fallback report must not be cached")
	}
}

func TestHTTP_EndToEnd_Moderation(t *testing.T) {
	s := startStack(t)

	req, _ := http.NewRequest(http.MethodPut, s.api.URL+"/v1/reviews/2/approval", strings.NewReader(`{"approved": true}`))
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approval status %d", res.StatusCode)
	}

	var page struct {
		Reviews []domain.Review `json:"reviews"`
	}
	getJSON(t, s.api.URL+"/v1/listings/Shoreditch/public", &page)
	if len(page.Reviews) != 1 || page.Reviews[0].ID != 2 {
		t.Fatalf("unexpected public reviews %+v", page.Reviews)
	}

	var sum []domain.ModerationSummary
	getJSON(t, s.api.URL+"/v1/listings/Shoreditch/moderation", &sum)
	if len(sum) != 1 || sum[0].Approved != 1 || sum[0].Pending != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

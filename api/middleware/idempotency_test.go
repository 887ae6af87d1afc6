package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
)

type stubIdempotencyStore struct {
	mu      sync.Mutex
	records map[string]string
}

func newStubIdempotencyStore() *stubIdempotencyStore {
	return &stubIdempotencyStore{records: map[string]string{}}
}

func (s *stubIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[key], nil
}

func (s *stubIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.records, k)
	}
	return nil
}

func newIdempotentRouter(store *stubIdempotencyStore, calls *int) http.Handler {
	r := chi.NewRouter()
	r.Use(Idempotency(store, config.RateLimitConfig{IdempotencyTTL: time.Hour}, nil))
	r.Post("/v1/teams", func(w http.ResponseWriter, req *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"team-1"}}`))
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := newIdempotentRouter(store, &calls)

	body := `{"name":"Alpha Company"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "abc-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "team-1") {
			t.Fatalf("attempt %d: unexpected body %s", i, rec.Body.String())
		}
	}

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := newIdempotentRouter(store, &calls)

	first := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"name":"Alpha"}`))
	first.Header.Set("Idempotency-Key", "abc-123")
	router.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"name":"Bravo"}`))
	second.Header.Set("Idempotency-Key", "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

// The production router mounts the middleware inside the /v1 route
// group, before chi has matched the rest of the tree. Replay
// protection must still engage for parameterized routes there.
func TestIdempotencyEngagesUnderNestedRouter(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Use(Idempotency(store, config.RateLimitConfig{IdempotencyTTL: time.Hour}, nil))
		r.Route("/teams/{teamID}", func(r chi.Router) {
			r.Post("/items", func(w http.ResponseWriter, req *http.Request) {
				calls++
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"data":{"id":"item-1"}}`))
			})
		})
	})

	target := "/v1/teams/0a06df7e-3f35-4f9a-b4f5-4512f9a19d11/items"
	body := `{"product_name":"Compass"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "field-retry-1")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d", i, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "item-1") {
			t.Fatalf("attempt %d: unexpected body %s", i, rec.Body.String())
		}
	}

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.records))
	}
}

func TestRouteCoveredMatchesPathShapes(t *testing.T) {
	cases := []struct {
		method   string
		path     string
		covered  bool
		critical bool
	}{
		{http.MethodPost, "/v1/teams", true, false},
		{http.MethodPost, "/v1/teams/abc/members/sgt.pepper", true, false},
		{http.MethodPatch, "/v1/teams/abc/items/def", true, false},
		{http.MethodPost, "/v1/teams/abc/items/def/damage-reports", true, false},
		{http.MethodPost, "/v1/teams/abc/items:hard-reset", true, true},
		{http.MethodPost, "/v1/teams/abc/exports", true, true},
		{http.MethodGet, "/v1/teams", false, false},
		{http.MethodPost, "/v1/teams/abc/items/def", false, false},
		{http.MethodPost, "/v1/roles", false, false},
	}

	for _, tc := range cases {
		critical, ok := routeCovered(tc.method, tc.path)
		if ok != tc.covered || critical != tc.critical {
			t.Errorf("%s %s: got covered=%v critical=%v, want covered=%v critical=%v",
				tc.method, tc.path, ok, critical, tc.covered, tc.critical)
		}
	}
}

func TestIdempotencyPassthroughWithoutHeader(t *testing.T) {
	store := newStubIdempotencyStore()
	calls := 0
	router := newIdempotentRouter(store, &calls)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"name":"Alpha"}`))
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Fatalf("expected both requests to run, ran %d", calls)
	}
}

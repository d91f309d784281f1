package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"oxypaste/cfg"
	"oxypaste/pkg/domain"
	"oxypaste/pkg/lang"
	"oxypaste/svc/cache"
)

type staticTokens struct {
	token string
}

func (s staticTokens) Token(ctx context.Context) (string, bool) {
	return s.token, s.token != ""
}

// fakeBackend is an in-memory pastebin API matching the consumed
// contract, routed with chi like the real service.
type fakeBackend struct {
	mu     sync.Mutex
	pastes map[string]map[string]any
	nextID int
}

func newFakeBackend() (*fakeBackend, *httptest.Server) {
	b := &fakeBackend{pastes: map[string]map[string]any{}}
	r := chi.NewRouter()
	r.Post("/api/pastes/", b.create)
	r.Get("/api/pastes/{id}", b.get)
	r.Delete("/api/pastes/{id}", b.delete)
	r.Get("/api/pastes/{id}/raw", b.raw)
	r.Get("/api/pastes/list/public", b.listPublic)
	r.Get("/api/pastes/search", b.search)
	r.Get("/api/stats", b.stats)
	r.Post("/api/user/login", b.login)
	return b, httptest.NewServer(r)
}

func (b *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad json"})
		return
	}
	if req["content"] == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "content required"})
		return
	}
	b.mu.Lock()
	b.nextID++
	id := "p" + strconv.Itoa(b.nextID)
	authed := r.Header.Get("Authorization") != ""
	createdBy := ""
	if authed {
		createdBy = "alice"
	}
	b.pastes[id] = map[string]any{
		"id":        id,
		"title":     req["title"],
		"content":   req["content"],
		"language":  req["language"],
		"public":    req["public"],
		"createdBy": createdBy,
		"createdAt": time.Now().UTC().Format(time.RFC3339),
	}
	b.mu.Unlock()
	resp := map[string]any{"id": id, "createdAt": time.Now().UTC().Format(time.RFC3339)}
	if !authed {
		resp["revocation_key"] = "rev-" + id
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (b *fakeBackend) get(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.pastes[chi.URLParam(r, "id")]
	b.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "paste not found"})
		return
	}
	json.NewEncoder(w).Encode(p)
}

func (b *fakeBackend) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pastes[id]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "paste not found"})
		return
	}
	if r.URL.Query().Get("revocation_key") != "rev-"+id && r.Header.Get("Authorization") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "bad credential"})
		return
	}
	delete(b.pastes, id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) raw(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	p, ok := b.pastes[chi.URLParam(r, "id")]
	b.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Paste-Id", p["id"].(string))
	w.Header().Set("X-Paste-Created-At", p["createdAt"].(string))
	w.Header().Set("X-Paste-Created-By", p["createdBy"].(string))
	w.Header().Set("X-Paste-Public", "true")
	w.Header().Set("X-Paste-Language", p["language"].(string))
	w.Write([]byte(p["content"].(string)))
}

func (b *fakeBackend) listPublic(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	items := []map[string]any{}
	for _, p := range b.pastes {
		items = append(items, map[string]any{
			"id": p["id"], "title": p["title"], "language": p["language"],
			"public": p["public"], "createdBy": p["createdBy"], "createdAt": p["createdAt"],
		})
	}
	b.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]any{
		"items": items, "page": 1, "pageSize": 20, "total": len(items),
	})
}

func (b *fakeBackend) search(w http.ResponseWriter, r *http.Request) {
	// Echo query handling back through an empty result page.
	if r.URL.Query().Get("q") == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "query required"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"items": []any{}, "page": 1, "pageSize": 20, "total": 0,
	})
}

func (b *fakeBackend) stats(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]int{"pastes": len(b.pastes), "users": 3, "views": 42})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	json.NewDecoder(r.Body).Decode(&req)
	if req["password"] != "hunter2" {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"sessionToken": "tok-abc",
		"expireAt":     time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	})
}

func testCfg(baseURL string) *cfg.Cfg {
	return &cfg.Cfg{
		APIBaseURL:     baseURL,
		RequestTimeout: 5 * time.Second,
		SearchRPS:      100,
		SearchBurst:    100,
		CacheSize:      16,
	}
}

func newTestClient(t *testing.T, baseURL string, tokens TokenProvider) *Client {
	t.Helper()
	readCache, err := cache.NewLRU(16)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	c, err := New(testCfg(baseURL), tokens, readCache)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCreateAndGet_RoundTrip(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	draft := domain.Draft{Title: "T", Content: "C", Language: lang.Python, Public: true}
	created, revKey, err := c.Create(ctx, draft)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("empty id from create")
	}
	if revKey == "" {
		t.Error("anonymous create returned no revocation key")
	}

	got, err := c.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "T" || got.Content != "C" || !got.Public {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if lang.Normalize(string(got.Language)) != lang.Python {
		t.Errorf("language = %q, want python", got.Language)
	}
}

func TestCreate_Authenticated_NoRevocationKey(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{token: "tok-abc"})

	_, revKey, err := c.Create(context.Background(), domain.Draft{Content: "C", Public: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if revKey != "" {
		t.Errorf("authenticated create returned revocation key %q", revKey)
	}
}

func TestCreate_ValidationError(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})

	_, _, err := c.Create(context.Background(), domain.Draft{Content: "", Public: true})
	if !domain.IsValidation(err) {
		t.Errorf("want validation error, got %v (kind %v)", err, domain.KindOf(err))
	}
}

func TestGet_NotFound(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})

	_, err := c.Get(context.Background(), "nope")
	if !domain.IsNotFound(err) {
		t.Errorf("want not-found, got %v", err)
	}
}

func TestGet_TolerantOfMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No language, no title.
		w.Write([]byte(`{"id":"x1","content":"body","public":false,"createdAt":"2026-01-02T03:04:05Z"}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})

	p, err := c.Get(context.Background(), "x1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Language != lang.AutoDetect {
		t.Errorf("missing language mapped to %q, want AutoDetect", p.Language)
	}
	if p.Title != "" {
		t.Errorf("missing title mapped to %q, want empty", p.Title)
	}
}

func TestGet_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>so not json</html>`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})

	_, err := c.Get(context.Background(), "x1")
	if !domain.IsTransport(err) {
		t.Errorf("want transport error, got %v", err)
	}
}

func TestGet_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore
	c := newTestClient(t, srv.URL, staticTokens{})

	_, err := c.Get(context.Background(), "x1")
	if !domain.IsTransport(err) {
		t.Errorf("want transport error, got %v", err)
	}
}

func TestGet_ReadCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"id":"x1","content":"body","public":true,"createdAt":"2026-01-02T03:04:05Z"}`))
	}))
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	if _, err := c.Get(ctx, "x1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(ctx, "x1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hits != 1 {
		t.Errorf("backend hit %d times, want 1", hits)
	}
}

func TestDelete_WithRevocationKey(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	created, revKey, err := c.Create(ctx, domain.Draft{Content: "C", Public: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := c.Delete(ctx, created.ID, revKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Second delete of a gone paste fails; exact kind is server-defined.
	err = c.Delete(ctx, created.ID, revKey)
	if !domain.IsNotFound(err) && !domain.IsAuthorization(err) {
		t.Errorf("second delete: want not-found or authorization, got %v", err)
	}
}

func TestDelete_BadCredential(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	created, _, err := c.Create(ctx, domain.Draft{Content: "C", Public: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = c.Delete(ctx, created.ID, "wrong-key")
	if !domain.IsAuthorization(err) {
		t.Errorf("want authorization error, got %v", err)
	}
}

func TestDelete_AnonymousWithoutCredential(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})

	err := c.Delete(context.Background(), "p1", "")
	if !domain.IsAuthorization(err) {
		t.Errorf("want authorization error, got %v", err)
	}
}

func TestRaw_BodyAndHeaders(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	created, _, err := c.Create(ctx, domain.Draft{Title: "T", Content: "raw body\n", Language: lang.Go, Public: true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	body, meta, err := c.Raw(ctx, created.ID)
	if err != nil {
		t.Fatalf("Raw: %v", err)
	}
	if body != "raw body\n" {
		t.Errorf("raw body = %q", body)
	}
	if meta.ID != created.ID || meta.Language != lang.Go || !meta.Public {
		t.Errorf("raw meta = %+v", meta)
	}
}

func TestListAndStats(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	if _, _, err := c.Create(ctx, domain.Draft{Content: "C", Public: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	page, err := c.ListPublic(ctx, 1, 20)
	if err != nil {
		t.Fatalf("ListPublic: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Errorf("page = %+v", page)
	}
	stats, err := c.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Pastes != 1 || stats.Users != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSearch_ParamsAndValidation(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	page, err := c.Search(ctx, domain.SearchParams{Query: "hello", TitleOnly: true, Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("page = %+v", page)
	}
	_, err = c.Search(ctx, domain.SearchParams{})
	if !domain.IsValidation(err) {
		t.Errorf("want validation error for empty query, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	_, srv := newFakeBackend()
	defer srv.Close()
	c := newTestClient(t, srv.URL, staticTokens{})
	ctx := context.Background()

	grant, err := c.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if grant.SessionToken != "tok-abc" || grant.ExpireAt.Before(time.Now()) {
		t.Errorf("grant = %+v", grant)
	}
	_, err = c.Login(ctx, "alice", "wrong")
	if !domain.IsAuthorization(err) {
		t.Errorf("want authorization error, got %v", err)
	}
}

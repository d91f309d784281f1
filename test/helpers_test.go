package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"oxypaste/cfg"
	"oxypaste/pkg/domain"
	"oxypaste/svc/cache"
	"oxypaste/svc/ledger"
	"oxypaste/svc/session"
	"oxypaste/svc/transport"
)

var envLoadOnce sync.Once

func loadTestEnv() {
	envLoadOnce.Do(func() {
		for _, p := range []string{".env.test", "../.env.test"} {
			if absPath, err := filepath.Abs(p); err == nil {
				if _, err := os.Stat(absPath); err == nil {
					_ = godotenv.Load(absPath)
					return
				}
			}
		}
	})
}

// backend is an in-memory paste server covering the slice of the API
// the full client flow exercises.
type backend struct {
	mu     sync.Mutex
	pastes map[string]storedPaste
	nextID int

	gets int
}

type storedPaste struct {
	title         string
	content       string
	language      string
	public        bool
	createdBy     string
	createdAt     time.Time
	revocationKey string
}

func newBackend() *backend {
	return &backend{pastes: map[string]storedPaste{}}
}

const testBearer = "session-token-1"

func (b *backend) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/pastes/", func(w http.ResponseWriter, req *http.Request) {
		var wire struct {
			Title    string `json:"title"`
			Content  string `json:"content"`
			Public   bool   `json:"public"`
			Language string `json:"language"`
		}
		if err := json.NewDecoder(req.Body).Decode(&wire); err != nil || wire.Content == "" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "content is required"})
			return
		}

		b.mu.Lock()
		b.nextID++
		id := "p" + strconv.Itoa(b.nextID)
		stored := storedPaste{
			title:     wire.Title,
			content:   wire.Content,
			language:  wire.Language,
			public:    wire.Public,
			createdAt: time.Now().UTC(),
		}
		resp := map[string]any{"id": id, "createdAt": stored.createdAt}
		if req.Header.Get("Authorization") == "Bearer "+testBearer {
			stored.createdBy = "alice"
		} else {
			stored.revocationKey = "rev-" + id
			resp["revocation_key"] = stored.revocationKey
		}
		b.pastes[id] = stored
		b.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(resp)
	})

	r.Get("/api/pastes/{id}", func(w http.ResponseWriter, req *http.Request) {
		b.mu.Lock()
		b.gets++
		stored, ok := b.pastes[chi.URLParam(req, "id")]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":        chi.URLParam(req, "id"),
			"title":     stored.title,
			"content":   stored.content,
			"language":  stored.language,
			"public":    stored.public,
			"createdBy": stored.createdBy,
			"createdAt": stored.createdAt,
		})
	})

	r.Delete("/api/pastes/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		b.mu.Lock()
		defer b.mu.Unlock()
		stored, ok := b.pastes[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		authed := req.Header.Get("Authorization") == "Bearer "+testBearer && stored.createdBy != ""
		keyed := stored.revocationKey != "" && req.URL.Query().Get("revocation_key") == stored.revocationKey
		if !authed && !keyed {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "not allowed"})
			return
		}
		delete(b.pastes, id)
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/api/user/login", func(w http.ResponseWriter, req *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(req.Body).Decode(&creds)
		if creds.Username != "alice" || creds.Password != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "bad credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"sessionToken": testBearer,
			"expireAt":     time.Now().Add(time.Hour).UTC(),
		})
	})

	return r
}

func (b *backend) getCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gets
}

func (b *backend) has(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.pastes[id]
	return ok
}

type testApp struct {
	cfg    *cfg.Cfg
	client *transport.Client
	sess   *session.Session
	ledger *ledger.Ledger
	tokens *ledger.TokenSource
}

// newTestApp wires the full client stack against the fake backend,
// with the ledger on a real sqlite file under t.TempDir.
func newTestApp(t *testing.T, server *httptest.Server) *testApp {
	t.Helper()
	loadTestEnv()

	c := &cfg.Cfg{
		APIBaseURL:     server.URL,
		Environment:    "development",
		LogLevel:       "error",
		RequestTimeout: 5 * time.Second,
		CacheSize:      64,
		SearchRPS:      100,
		SearchBurst:    100,
		PageSize:       20,
	}

	store, err := ledger.NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens := ledger.NewTokenSource(store)
	led := ledger.New(store)
	readCache, err := cache.NewLRU(c.CacheSize)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	client, err := transport.New(c, tokens, readCache)
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return &testApp{
		cfg:    c,
		client: client,
		sess:   session.New(client, led, tokens, nil),
		ledger: led,
		tokens: tokens,
	}
}

func draftWithContent(content string) domain.Draft {
	return domain.Draft{Content: content, Public: true}
}

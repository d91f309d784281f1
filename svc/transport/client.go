// Package transport performs the client's HTTP calls against the
// pastebin backend and translates responses into domain results or
// typed errors. It owns no local state beyond a read cache; ledger
// bookkeeping stays with the session layer.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"oxypaste/cfg"
	"oxypaste/pkg/domain"
	"oxypaste/pkg/lang"
	"oxypaste/svc/cache"
	"oxypaste/svc/util"
)

const (
	maxErrBody   = 64 * 1024
	maxRawBody   = 10 * 1024 * 1024
	readCacheTTL = 30 * time.Second
)

// TokenProvider supplies the current bearer token, if any. Reading it
// once per operation replaces scattered ad-hoc storage lookups.
type TokenProvider interface {
	Token(ctx context.Context) (string, bool)
}

type Client struct {
	base      *url.URL
	http      *http.Client
	tokens    TokenProvider
	readCache *cache.LRU
	flight    singleflight.Group
	searchLim *rate.Limiter
}

func New(c *cfg.Cfg, tokens TokenProvider, readCache *cache.LRU) (*Client, error) {
	base, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}
	if tokens == nil {
		return nil, errors.New("transport: nil token provider")
	}
	return &Client{
		base:      base,
		http:      &http.Client{Timeout: c.RequestTimeout},
		tokens:    tokens,
		readCache: readCache,
		searchLim: rate.NewLimiter(rate.Limit(c.SearchRPS), c.SearchBurst),
	}, nil
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(parts, "/")
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", util.NewRequestID())
	if token, ok := c.tokens.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		util.Warn().Err(err).Str("url", util.RedactLogLine(req.URL.String())).Msg("request failed")
		return nil, domain.Transport(err.Error())
	}
	return resp, nil
}

// decodeError maps a non-success response onto the error taxonomy. A
// structured {error} payload on a 4xx is a validation message for the
// user; anything unexpected degrades to a transport failure rather
// than leaking a raw decode error into the UI.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	var payload struct {
		Error string `json:"error"`
	}
	structured := json.Unmarshal(body, &payload) == nil && payload.Error != ""
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrPasteNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		if structured {
			return domain.NewErr(domain.KindAuthorization, "UNAUTHORIZED", payload.Error)
		}
		return domain.ErrUnauthorized
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && structured:
		return domain.Validation(payload.Error)
	default:
		return domain.Transport(fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

func decodeJSON(resp *http.Response, out any) error {
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(out); err != nil {
		return domain.Transport("malformed response: " + err.Error())
	}
	return nil
}

// pasteWire tolerates the backend omitting language and title.
type pasteWire struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Language  string    `json:"language"`
	Public    bool      `json:"public"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w pasteWire) toDomain() *domain.Paste {
	return &domain.Paste{
		ID:        w.ID,
		Title:     w.Title,
		Content:   w.Content,
		Language:  lang.Normalize(w.Language),
		Public:    w.Public,
		CreatedBy: w.CreatedBy,
		CreatedAt: w.CreatedAt,
	}
}

type createWire struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Public   bool   `json:"public"`
	Language string `json:"language"`
}

type createRespWire struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	RevocationKey string    `json:"revocation_key"`
}

// Create submits a draft. The revocation key is non-empty only for
// anonymous creations; recording it is the caller's job.
func (c *Client) Create(ctx context.Context, draft domain.Draft) (*domain.Paste, string, error) {
	body, err := json.Marshal(createWire{
		Title:    norm.NFC.String(draft.Title),
		Content:  norm.NFC.String(draft.Content),
		Public:   draft.Public,
		Language: string(draft.Language),
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "marshal create request")
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("api", "pastes")+"/", bytes.NewReader(body))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", decodeError(resp)
	}
	var created createRespWire
	if err := decodeJSON(resp, &created); err != nil {
		return nil, "", err
	}
	if created.ID == "" {
		return nil, "", domain.Transport("create response missing id")
	}
	creator := ""
	if _, ok := c.tokens.Token(ctx); ok {
		// Server attributes the paste; the exact username comes back on
		// the next read. Only the anonymous/authenticated split matters
		// here.
		creator = "me"
	}
	paste := &domain.Paste{
		ID:        created.ID,
		Title:     draft.Title,
		Content:   draft.Content,
		Language:  draft.Language,
		Public:    draft.Public,
		CreatedBy: creator,
		CreatedAt: created.CreatedAt,
	}
	if c.readCache != nil {
		c.readCache.Set(ctx, paste, readCacheTTL)
	}
	util.Info().Str("id", created.ID).Msg("paste created")
	return paste, created.RevocationKey, nil
}

// Get fetches one paste. Concurrent fetches of the same id collapse to
// one request, and recent results come from the read cache.
func (c *Client) Get(ctx context.Context, id string) (*domain.Paste, error) {
	if id == "" {
		return nil, domain.Validation("paste id required")
	}
	if c.readCache != nil {
		if p := c.readCache.Get(ctx, id); p != nil {
			return p, nil
		}
	}
	v, err, _ := c.flight.Do(id, func() (any, error) {
		return c.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Paste), nil
}

func (c *Client) fetch(ctx context.Context, id string) (*domain.Paste, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "pastes", url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	var wire pasteWire
	if err := decodeJSON(resp, &wire); err != nil {
		return nil, err
	}
	paste := wire.toDomain()
	if c.readCache != nil {
		c.readCache.Set(ctx, paste, readCacheTTL)
	}
	return paste, nil
}

// Delete removes a paste, proving the right to do so with either the
// revocation key from the ledger (anonymous pastes) or the bearer
// token. Whether a second delete reports not-found or unauthorized is
// server-defined; both surface as-is.
func (c *Client) Delete(ctx context.Context, id, revocationKey string) error {
	if id == "" {
		return domain.Validation("paste id required")
	}
	endpoint := c.endpoint("api", "pastes", url.PathEscape(id))
	if revocationKey != "" {
		endpoint += "?revocation_key=" + url.QueryEscape(revocationKey)
	} else if _, ok := c.tokens.Token(ctx); !ok {
		return domain.ErrNotLoggedIn
	}
	req, err := c.newRequest(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if c.readCache != nil {
		c.readCache.Delete(id)
	}
	util.Info().Str("id", id).Msg("paste deleted")
	return nil
}

// RawMeta is the paste metadata the raw endpoint echoes in headers.
type RawMeta struct {
	ID        string
	CreatedAt time.Time
	CreatedBy string
	Public    bool
	Language  lang.Language
}

// Raw fetches the paste body as text/plain.
func (c *Client) Raw(ctx context.Context, id string) (string, RawMeta, error) {
	if id == "" {
		return "", RawMeta{}, domain.Validation("paste id required")
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "pastes", url.PathEscape(id), "raw"), nil)
	if err != nil {
		return "", RawMeta{}, err
	}
	req.Header.Set("Accept", "text/plain")
	resp, err := c.do(req)
	if err != nil {
		return "", RawMeta{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", RawMeta{}, decodeError(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRawBody))
	if err != nil {
		return "", RawMeta{}, domain.Transport("read raw body: " + err.Error())
	}
	meta := RawMeta{
		ID:        resp.Header.Get("X-Paste-Id"),
		CreatedBy: resp.Header.Get("X-Paste-Created-By"),
		Public:    resp.Header.Get("X-Paste-Public") == "true",
		Language:  lang.Normalize(resp.Header.Get("X-Paste-Language")),
	}
	if ts := resp.Header.Get("X-Paste-Created-At"); ts != "" {
		if parsed, perr := time.Parse(time.RFC3339, ts); perr == nil {
			meta.CreatedAt = parsed
		}
	}
	return string(body), meta, nil
}

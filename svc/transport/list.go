package transport

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"oxypaste/pkg/domain"
	"oxypaste/pkg/lang"
)

type summaryWire struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  string    `json:"language"`
	Public    bool      `json:"public"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type pageWire struct {
	Items    []summaryWire `json:"items"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
	Total    int           `json:"total"`
}

func (w pageWire) toDomain() *domain.Page {
	page := &domain.Page{
		Items:    make([]domain.Summary, 0, len(w.Items)),
		Page:     w.Page,
		PageSize: w.PageSize,
		Total:    w.Total,
	}
	for _, item := range w.Items {
		page.Items = append(page.Items, domain.Summary{
			ID:        item.ID,
			Title:     item.Title,
			Language:  lang.Normalize(item.Language),
			Public:    item.Public,
			CreatedBy: item.CreatedBy,
			CreatedAt: item.CreatedAt,
		})
	}
	return page
}

func (c *Client) getPage(ctx context.Context, endpoint string, query url.Values) (*domain.Page, error) {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
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
	var wire pageWire
	if err := decodeJSON(resp, &wire); err != nil {
		return nil, err
	}
	return wire.toDomain(), nil
}

// ListPublic returns the public paste listing.
func (c *Client) ListPublic(ctx context.Context, page, pageSize int) (*domain.Page, error) {
	return c.getPage(ctx, c.endpoint("api", "pastes", "list", "public"), pageQuery(page, pageSize))
}

// ListRoot returns the instance operator's pinned listing.
func (c *Client) ListRoot(ctx context.Context, page, pageSize int) (*domain.Page, error) {
	return c.getPage(ctx, c.endpoint("api", "pastes", "list", "root"), pageQuery(page, pageSize))
}

// Search runs a paginated free-text search. A courtesy limiter keeps
// search-as-you-type from hammering the backend; Wait respects ctx so
// a superseded search aborts instead of queueing.
func (c *Client) Search(ctx context.Context, params domain.SearchParams) (*domain.Page, error) {
	if err := c.searchLim.Wait(ctx); err != nil {
		return nil, domain.Transport("search throttled: " + err.Error())
	}
	query := pageQuery(params.Page, params.PageSize)
	if params.Query != "" {
		query.Set("q", params.Query)
	}
	if params.Author != "" {
		query.Set("author", params.Author)
	}
	if !params.From.IsZero() {
		query.Set("from", params.From.Format(time.RFC3339))
	}
	if !params.To.IsZero() {
		query.Set("to", params.To.Format(time.RFC3339))
	}
	if params.TitleOnly {
		query.Set("titleOnly", "true")
	}
	if params.Sort != "" {
		query.Set("sort", params.Sort)
	}
	return c.getPage(ctx, c.endpoint("api", "pastes", "search"), query)
}

// Stats returns the instance's aggregate counts.
func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("api", "stats"), nil)
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
	var stats domain.Stats
	if err := decodeJSON(resp, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func pageQuery(page, pageSize int) url.Values {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		query.Set("pageSize", strconv.Itoa(pageSize))
	}
	return query
}

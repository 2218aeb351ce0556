package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnalyticsPath is the endpoint the client queries.
const AnalyticsPath = "/api/analytics"

// Session is the part of an auth session the client needs.
type Session struct {
	AccessToken string
}

// SessionProvider supplies the current session. A nil session with a nil
// error means the request proceeds unauthenticated.
type SessionProvider interface {
	GetSession(ctx context.Context) (*Session, error)
}

// StaticSession always returns the same token; an empty token means no session.
type StaticSession string

// GetSession implements SessionProvider.
func (s StaticSession) GetSession(context.Context) (*Session, error) {
	if s == "" {
		return nil, nil
	}
	return &Session{AccessToken: string(s)}, nil
}

// Fetcher retrieves one page of a breakdown.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) (*Result, error)
}

// Result is a normalized server response.
type Result struct {
	Rows       []MetricRow
	Summary    SummaryStats
	Page       int
	TotalPages int
	Total      int
}

// EmptyResult is substituted when a fetch fails, so callers render the
// "no data" state instead of an error.
func EmptyResult() *Result {
	return &Result{Rows: []MetricRow{}, Page: 1}
}

// Item is one row as it appears on the wire. Exactly one of the dimension
// fields is set, matching the view.
type Item struct {
	Country string `json:"country,omitempty"`
	Page    string `json:"page,omitempty"`
	Device  string `json:"device,omitempty"`
	Count   int    `json:"count"`
}

// UnknownValue stands in for an empty dimension value on the wire, since an
// empty string would drop the item's dimension key.
const UnknownValue = "unknown"

// NewItem builds the wire item for a row under a view.
func NewItem(v View, row MetricRow) Item {
	item := Item{Count: row.Count}
	value := row.DimensionValue
	if value == "" {
		value = UnknownValue
	}
	switch v {
	case ViewPages:
		item.Page = value
	case ViewDevices:
		item.Device = value
	default:
		item.Country = value
	}
	return item
}

// Value returns the dimension value for the view.
func (i Item) Value(v View) string {
	switch v {
	case ViewPages:
		return i.Page
	case ViewDevices:
		return i.Device
	default:
		return i.Country
	}
}

// Response is the JSON body of GET /api/analytics.
type Response struct {
	Items      []Item       `json:"items"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
	Summary    SummaryStats `json:"summary"`
}

// Client talks to the analytics endpoint over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   SessionProvider
	timeout    *time.Duration
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithSessionProvider attaches a session source for bearer credentials.
func WithSessionProvider(sp SessionProvider) ClientOption {
	return func(c *Client) { c.sessions = sp }
}

// WithTimeout bounds every request. A client passed to WithHTTPClient is
// copied rather than modified.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = &d }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout != nil {
		hc := *c.httpClient
		hc.Timeout = *c.timeout
		c.httpClient = &hc
	}
	return c
}

// Fetch performs the request and normalizes the body. Any transport failure
// or non-2xx status is returned as an error.
func (c *Client) Fetch(ctx context.Context, q Query) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+AnalyticsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build analytics request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.sessions != nil {
		session, err := c.sessions.GetSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		if session != nil && session.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch analytics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch analytics: unexpected status %d", resp.StatusCode)
	}

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode analytics response: %w", err)
	}
	return normalize(q.View, body), nil
}

func normalize(v View, body Response) *Result {
	rows := make([]MetricRow, 0, len(body.Items))
	for _, item := range body.Items {
		count := item.Count
		if count < 0 {
			count = 0
		}
		rows = append(rows, MetricRow{DimensionValue: item.Value(v), Count: count})
	}
	page := body.Page
	if page < 1 {
		page = 1
	}
	return &Result{
		Rows:       rows,
		Summary:    body.Summary,
		Page:       page,
		TotalPages: max(body.TotalPages, 0),
		Total:      max(body.Total, 0),
	}
}

package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is a minimal PostgREST client for a Supabase project.
// It covers the table operations this service needs: select, insert, update.
type Client struct {
	http *resty.Client
}

type Options struct {
	// URL is the project URL, e.g. https://xyz.supabase.co.
	URL string
	// Key is the anon or service-role key.
	Key     string
	Timeout time.Duration
}

func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("supabase: url is required")
	}
	if opts.Key == "" {
		return nil, errors.New("supabase: key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.URL, "/")+"/rest/v1").
		SetHeader("apikey", opts.Key).
		SetAuthToken(opts.Key).
		SetHeader("Accept", "application/json").
		SetTimeout(opts.Timeout)

	return &Client{http: client}, nil
}

// APIError is PostgREST's error body.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase: %s (status %d, code %s)", msg, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("supabase: %s (status %d)", msg, e.StatusCode)
}

// Filter is a set of PostgREST query parameters.
type Filter url.Values

// Eq adds a col=eq.value condition.
func (f Filter) Eq(col, value string) Filter {
	url.Values(f).Add(col, "eq."+value)
	return f
}

// Or adds or=(c1,c2,...), matching rows that satisfy any condition.
// Conditions use PostgREST's col.op.value form, e.g. "status.is.null".
func (f Filter) Or(conds ...string) Filter {
	url.Values(f).Set("or", "("+strings.Join(conds, ",")+")")
	return f
}

// Limit caps the number of returned rows.
func (f Filter) Limit(n int) Filter {
	url.Values(f).Set("limit", fmt.Sprint(n))
	return f
}

// Where starts an empty filter.
func Where() Filter { return Filter{} }

// Select decodes matching rows of table into out, which must be a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, f Filter, out any) error {
	q := url.Values{}
	for k, v := range f {
		q[k] = v
	}
	if q.Get("select") == "" {
		q.Set("select", "*")
	}
	return c.do(ctx, c.http.R().SetQueryParamsFromValues(q).SetResult(out), "GET", table)
}

// Insert inserts row into table and decodes the stored rows into out (pointer to a slice).
func (c *Client) Insert(ctx context.Context, table string, row any, out any) error {
	req := c.http.R().
		SetHeader("Prefer", "return=representation").
		SetHeader("Content-Type", "application/json").
		SetBody(row).
		SetResult(out)
	return c.do(ctx, req, "POST", table)
}

// Update patches rows of table matching f and decodes the updated rows into out.
// A filter that matches nothing yields an empty slice, not an error.
func (c *Client) Update(ctx context.Context, table string, f Filter, patch any, out any) error {
	if len(f) == 0 {
		return errors.New("supabase: refusing update without filter")
	}
	req := c.http.R().
		SetHeader("Prefer", "return=representation").
		SetHeader("Content-Type", "application/json").
		SetQueryParamsFromValues(url.Values(f)).
		SetBody(patch).
		SetResult(out)
	return c.do(ctx, req, "PATCH", table)
}

// Ping checks the project is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context, table string) error {
	var rows []map[string]any
	return c.Select(ctx, table, Where().Limit(1), &rows)
}

func (c *Client) do(ctx context.Context, req *resty.Request, method, table string) error {
	var apiErr APIError
	resp, err := req.SetContext(ctx).SetError(&apiErr).Execute(method, "/"+table)
	if err != nil {
		return fmt.Errorf("supabase: %s %s failed: %w", method, table, err)
	}
	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(resp.String())
		}
		return &apiErr
	}
	return nil
}

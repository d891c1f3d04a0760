// Package bsapi is a client for the partner-network business-suite REST
// API: operator authentication, partner master lookups, and per-site
// shift production statistics.
package bsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	loginPath      = "/bs-auth-authentication/user/_login"
	partnerPath    = "/bs-partner-master/partner/_get"
	summaryPath    = "/bs-production-stats/shift-summary/_list"
	technologyPath = "/bs-production-stats/technology/_list"
)

// Client talks to the upstream partner-network suite.
type Client interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	PartnerInfo(ctx context.Context, code string) (*PartnerRecord, error)
	SiteSummary(ctx context.Context, q SummaryQuery) ([]ShiftRow, error)
	TechSnapshots(ctx context.Context, q SummaryQuery) ([]TechSnapshot, error)
}

// TokenSource supplies the current access token for data requests.
// It is consulted per request so a re-login picks up the new token.
type TokenSource func() string

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTokenSource sets the access-token supplier. Without one, data
// requests are sent without a token header and the upstream rejects them.
func WithTokenSource(ts TokenSource) Option {
	return func(c *httpClient) {
		c.token = ts
	}
}

// WithRateLimit paces requests at the given requests/second. Zero or
// negative disables pacing.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	token   TokenSource
	limiter *rate.Limiter
	http    *http.Client
}

// NewClient creates a suite client. The API key is attached to every
// request, auth endpoints included.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "bsapi: marshal login request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "bsapi: create login request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(httpReq, false)
	if err != nil {
		return nil, err
	}

	var result LoginResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "bsapi: unmarshal login response")
	}
	return &result, nil
}

func (c *httpClient) PartnerInfo(ctx context.Context, code string) (*PartnerRecord, error) {
	records, err := list[PartnerRecord](ctx, c, partnerPath, url.Values{"code": {code}})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Errorf("bsapi: partner %s not found", code)
	}
	// The master returns a collection; the first element is the record.
	return &records[0], nil
}

func (c *httpClient) SiteSummary(ctx context.Context, q SummaryQuery) ([]ShiftRow, error) {
	return list[ShiftRow](ctx, c, summaryPath, q.values())
}

func (c *httpClient) TechSnapshots(ctx context.Context, q SummaryQuery) ([]TechSnapshot, error) {
	return list[TechSnapshot](ctx, c, technologyPath, q.values())
}

func (q SummaryQuery) values() url.Values {
	v := url.Values{
		"partner":    {q.PartnerID},
		"site":       {q.Site},
		"start_date": {q.StartDate},
	}
	if q.EndDate != "" {
		v.Set("end_date", q.EndDate)
	}
	return v
}

// list performs a GET against a collection endpoint and unwraps the
// shared envelope.
func list[T any](ctx context.Context, c *httpClient, path string, query url.Values) ([]T, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, eris.Wrapf(err, "bsapi: create request %s", path)
	}

	respBody, err := c.do(httpReq, true)
	if err != nil {
		return nil, err
	}

	var result listResponse[T]
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrapf(err, "bsapi: unmarshal %s response", path)
	}
	if result.Status != "OK" {
		return nil, eris.Errorf("bsapi: %s returned status %q", path, result.Status)
	}
	return result.Data, nil
}

// do sends the request with the suite headers applied: apikey always,
// token only on data requests. Requests are never retried.
func (c *httpClient) do(req *http.Request, withToken bool) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, eris.Wrap(err, "bsapi: rate limit wait")
		}
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if withToken && c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("token", tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "bsapi: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "bsapi: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("bsapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

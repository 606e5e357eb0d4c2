package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

var ErrStatus = errors.New("unexpected http status")

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client downloads whole documents in a single GET. Sources are small enough to
// buffer, and paging is left to whoever publishes them.
type Client struct {
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithMaxBodySize(n int) Option {
	return func(c *Client) { c.http.MaxResponseBodySize = n }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		http: &fasthttp.Client{
			ReadTimeout:         30 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxConnsPerHost:     4,
			MaxResponseBodySize: 256 << 20,
		},
		defaultTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsRemote reports whether location should be fetched over http(s).
func IsRemote(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Get returns the body of url. Non-2xx responses are ErrStatus.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(strings.TrimSpace(url))
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("get %s: %w: status=%d body=%s", url, ErrStatus, status, truncate(string(resp.Body()), 512))
	}
	// resp is released on return
	body := append([]byte(nil), resp.Body()...)
	return body, nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

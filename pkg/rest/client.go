package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
	"github.com/aryannishad-86/thriftgram/pkg/logger"
	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Options configures the API client.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// SlowThreshold is how long a request may run before the SlowStart
	// callback fires. The hosted backend spins down when idle, so the first
	// request after a quiet period routinely crosses this line.
	SlowThreshold time.Duration

	TokenSource TokenSource

	// OnUnauthorized runs once per 401 response, before the typed error is
	// returned. The session layer hooks its full wipe here.
	OnUnauthorized func()

	// OnSlowStart receives true when a request crosses SlowThreshold and
	// false when that request finishes.
	OnSlowStart func(slow bool)

	Logger     *logger.Logger
	HTTPClient *http.Client
}

// Client is the thriftgram API client. It owns base-URL resolution, bearer
// injection, timeout policy, and the mapping of transport and status
// failures onto typed error codes. It never retries on its own.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	slowThreshold  time.Duration
	tokens         TokenSource
	onUnauthorized func()
	onSlowStart    func(bool)
	logg           *logger.Logger
}

const defaultTimeout = 90 * time.Second

// NewClient validates the options and builds a client.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http(s), got %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:        base,
		http:           httpClient,
		slowThreshold:  opts.SlowThreshold,
		tokens:         opts.TokenSource,
		onUnauthorized: opts.OnUnauthorized,
		onSlowStart:    opts.OnSlowStart,
		logg:           opts.Logger,
	}, nil
}

// Get issues a GET with optional query parameters, decoding into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body, decoding into out when provided.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Delete issues a DELETE; some endpoints take a JSON body (wishlist remove).
func (c *Client) Delete(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.resolve(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	stopSlow := c.startSlowTimer()
	resp, err := c.http.Do(req)
	stopSlow()
	if err != nil {
		return c.transportError(ctx, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding response body")
		}
		return nil
	}

	return c.statusError(ctx, method, path, resp)
}

func (c *Client) resolve(path string) *url.URL {
	rel := &url.URL{Path: strings.TrimLeft(path, "/")}
	resolved := *c.baseURL
	resolved.Path = strings.TrimRight(resolved.Path, "/") + "/" + rel.Path
	return &resolved
}

func (c *Client) startSlowTimer() func() {
	if c.onSlowStart == nil || c.slowThreshold <= 0 {
		return func() {}
	}
	fired := make(chan struct{})
	timer := time.AfterFunc(c.slowThreshold, func() {
		c.onSlowStart(true)
		close(fired)
	})
	return func() {
		if !timer.Stop() {
			// The slow signal went out; always pair it with the all-clear.
			<-fired
			c.onSlowStart(false)
		}
	}
}

func (c *Client) transportError(ctx context.Context, method, path string, err error) error {
	code := pkgerrors.CodeDependency
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		code = pkgerrors.CodeTimeout
	}
	if c.logg != nil {
		c.logg.Warn(ctx, fmt.Sprintf("%s %s failed: %v", method, path, err))
	}
	return pkgerrors.Wrap(code, err, fmt.Sprintf("%s %s", method, path))
}

func (c *Client) statusError(ctx context.Context, method, path string, resp *http.Response) error {
	detail := readErrorDetail(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	code := codeForStatus(resp.StatusCode)
	msg := fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	if c.logg != nil {
		c.logg.Warn(ctx, msg)
	}
	return pkgerrors.New(code, msg)
}

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	default:
		return pkgerrors.CodeDependency
	}
}

// readErrorDetail pulls the human-readable message out of the backend's
// error envelope; it accepts both {"detail": ...} and {"error": ...}.
func readErrorDetail(body io.Reader) string {
	payload, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(payload) == 0 {
		return ""
	}
	var envelope struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return ""
	}
	if envelope.Detail != "" {
		return envelope.Detail
	}
	return envelope.Error
}

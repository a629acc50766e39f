package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
)

type staticTokens string

func (s staticTokens) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler, opts Options) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts.BaseURL = srv.URL + "/api"
	client, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestGetDecodesAndSendsHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotReqID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		if r.URL.Path != "/api/items/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("missing page param, query=%q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"count": 7}`))
	})

	client, _ := newTestClient(t, handler, Options{TokenSource: staticTokens("tok-1")})

	var out struct {
		Count int `json:"count"`
	}
	query := url.Values{"page": {"2"}}
	if err := client.Get(context.Background(), "/items/", query, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.Count != 7 {
		t.Fatalf("unexpected decode result %d", out.Count)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatal("expected a request id header")
	}
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	t.Parallel()

	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})
	client, _ := newTestClient(t, handler, Options{TokenSource: staticTokens("")})

	if err := client.Get(context.Background(), "/items/", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no auth header, got %q", gotAuth)
	}
}

func TestStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{http.StatusForbidden, pkgerrors.CodeForbidden},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusTooManyRequests, pkgerrors.CodeRateLimit},
		{http.StatusInternalServerError, pkgerrors.CodeDependency},
		{http.StatusBadGateway, pkgerrors.CodeDependency},
	}

	for _, tt := range tests {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		})
		client, _ := newTestClient(t, handler, Options{})

		err := client.Get(context.Background(), "/items/", nil, nil)
		if err == nil {
			t.Fatalf("status %d: expected error", tt.status)
		}
		if got := pkgerrors.CodeOf(err); got != tt.code {
			t.Fatalf("status %d: expected code %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestUnauthorizedHookFiresOnce(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	var mu sync.Mutex
	calls := 0
	client, _ := newTestClient(t, handler, Options{
		OnUnauthorized: func() {
			mu.Lock()
			calls++
			mu.Unlock()
		},
	})

	err := client.Post(context.Background(), "/items/3/like/", nil, nil)
	if pkgerrors.CodeOf(err) != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected hook to fire once, fired %d times", calls)
	}
}

func TestErrorDetailSurfaced(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "rating must be between 1 and 5"}`))
	})
	client, _ := newTestClient(t, handler, Options{})

	err := client.Post(context.Background(), "/reviews/", map[string]int{"rating": 9}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if want := "rating must be between 1 and 5"; !strings.Contains(typed.Message(), want) {
		t.Fatalf("expected detail %q in message %q", want, typed.Message())
	}
}

func TestTimeoutMapsToTimeoutCode(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	client, _ := newTestClient(t, handler, Options{
		HTTPClient: &http.Client{Timeout: 20 * time.Millisecond},
	})

	err := client.Get(context.Background(), "/items/", nil, nil)
	if got := pkgerrors.CodeOf(err); got != pkgerrors.CodeTimeout {
		t.Fatalf("expected timeout code, got %s (%v)", got, err)
	}
}

func TestSlowStartSignalPairs(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(60 * time.Millisecond)
	})

	var mu sync.Mutex
	var signals []bool
	client, _ := newTestClient(t, handler, Options{
		SlowThreshold: 10 * time.Millisecond,
		OnSlowStart: func(slow bool) {
			mu.Lock()
			signals = append(signals, slow)
			mu.Unlock()
		},
	})

	if err := client.Get(context.Background(), "/items/", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(signals) != 2 || !signals[0] || signals[1] {
		t.Fatalf("expected [true false], got %v", signals)
	}
}

func TestSlowSignalOrderingWhenStopRacesTimer(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Millisecond)
	})

	var mu sync.Mutex
	var signals []bool
	client, _ := newTestClient(t, handler, Options{
		SlowThreshold: time.Millisecond,
		OnSlowStart: func(slow bool) {
			mu.Lock()
			signals = append(signals, slow)
			mu.Unlock()
		},
	})

	// The response and the threshold land together, so the stop func and
	// the timer callback race. The all-clear must still come last.
	for i := 0; i < 50; i++ {
		if err := client.Get(context.Background(), "/items/", nil, nil); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(signals)%2 != 0 {
		t.Fatalf("expected paired signals, got %v", signals)
	}
	for i := 0; i < len(signals); i += 2 {
		if !signals[i] || signals[i+1] {
			t.Fatalf("signal pair %d out of order: %v", i/2, signals)
		}
	}
}

func TestFastRequestSkipsSlowSignal(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	var mu sync.Mutex
	var signals []bool
	client, _ := newTestClient(t, handler, Options{
		SlowThreshold: time.Second,
		OnSlowStart: func(slow bool) {
			mu.Lock()
			signals = append(signals, slow)
			mu.Unlock()
		},
	})

	if err := client.Get(context.Background(), "/items/", nil, nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(signals) != 0 {
		t.Fatalf("expected no slow signals, got %v", signals)
	}
}

func TestEmptyBodySuccessWithOut(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client, _ := newTestClient(t, handler, Options{})

	var out map[string]any
	if err := client.Post(context.Background(), "/items/3/unlike/", nil, &out); err != nil {
		t.Fatalf("expected empty body to be tolerated, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Options{BaseURL: "redis://nope"}); err == nil {
		t.Fatal("expected scheme error")
	}
}

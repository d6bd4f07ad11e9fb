package transport_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/transport"
)

// ── RestySender ───────────────────────────────────────────────────────────

func TestRestySender_AppliesHeadersToEveryRequest(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
		traces []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		traces = append(traces, r.Header.Get("X-Trace"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := transport.NewRestySender(transport.SenderConfig{
		Timeout: 5 * time.Second,
		Header:  http.Header{"User-Agent": {"jobmate-test"}},
	})
	ctx := context.Background()

	_, err := s.Send(ctx, http.MethodGet, srv.URL+"/a", nil)
	require.NoError(t, err)
	_, err = s.Send(ctx, http.MethodGet, srv.URL+"/b", http.Header{"X-Trace": {"42"}})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"jobmate-test", "jobmate-test"}, agents)
	assert.Equal(t, []string{"", "42"}, traces)
}

func TestRestySender_NonSuccessStatusIsAResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte("<html>ok</html>"))
		}
	}))
	defer srv.Close()

	s := transport.NewRestySender(transport.SenderConfig{Timeout: 5 * time.Second})
	cases := map[string]int{
		"/":          http.StatusOK,
		"/forbidden": http.StatusForbidden,
		"/missing":   http.StatusNotFound,
		"/broken":    http.StatusBadGateway,
	}
	for path, want := range cases {
		resp, err := s.Send(context.Background(), http.MethodGet, srv.URL+path, nil)
		require.NoError(t, err, path)
		assert.Equal(t, want, resp.StatusCode, path)
	}

	resp, err := s.Send(context.Background(), http.MethodGet, srv.URL+"/", nil)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(resp.Body))
}

func TestRestySender_RoutesThroughProxy(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	// A port nobody listens on.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadProxy := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := transport.NewRestySender(transport.SenderConfig{
		ProxyURL: "socks5://" + deadProxy,
		Timeout:  2 * time.Second,
	})
	_, err = s.Send(context.Background(), http.MethodGet, srv.URL, nil)
	require.Error(t, err)
	assert.Zero(t, hits.Load(), "request must not bypass the proxy")
}

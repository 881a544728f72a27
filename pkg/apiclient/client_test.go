package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// authServer simulates the API: /api/protected answers 401 TOKEN_EXPIRED
// until the access cookie carries the fresh value, and /api/auth/refresh
// rotates the cookie. Refresh is deliberately slow so concurrent expired
// requests pile up behind one leader.
type authServer struct {
	refreshCalls int64
	refreshOK    bool
	refreshDelay time.Duration
}

func (a *authServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("accessToken"); err == nil && c.Value == "fresh" {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
			return
		}
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false, "message": "Access token expired", "code": "TOKEN_EXPIRED",
		})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&a.refreshCalls, 1)
		time.Sleep(a.refreshDelay)
		if !a.refreshOK {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false, "message": "Refresh token revoked, please login again",
			})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "accessToken", Value: "fresh", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Token refreshed"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(srv.URL, opts...)
	require.NoError(t, err)
	// seed an expired access token
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	c.HTTPClient().Jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: "stale", Path: "/"}})
	return c
}

// Five concurrent expired requests must produce exactly one refresh call,
// and every caller must end up with a successful response.
func TestConcurrentExpiryRefreshesOnce(t *testing.T) {
	a := &authServer{refreshOK: true, refreshDelay: 150 * time.Millisecond}
	srv := httptest.NewServer(a.handler())
	defer srv.Close()

	c := newTestClient(t, srv)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*Response, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), "/api/protected")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i], "caller %d", i)
		require.Equal(t, http.StatusOK, results[i].Status, "caller %d", i)
	}
	require.Equal(t, int64(1), atomic.LoadInt64(&a.refreshCalls))
}

// When refresh fails, every queued caller observes the same terminal error
// and the session-end callback points at the login page.
func TestFailedRefreshFailsAllWaiters(t *testing.T) {
	a := &authServer{refreshOK: false, refreshDelay: 100 * time.Millisecond}
	srv := httptest.NewServer(a.handler())
	defer srv.Close()

	var redirects []string
	var mu sync.Mutex
	c := newTestClient(t, srv, WithSessionEndHandler(func(p string) {
		mu.Lock()
		redirects = append(redirects, p)
		mu.Unlock()
	}))

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Get(context.Background(), "/api/protected")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.ErrorIs(t, errs[i], ErrSessionEnded, "caller %d", i)
	}
	require.Equal(t, int64(1), atomic.LoadInt64(&a.refreshCalls))
	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, redirects)
	for _, r := range redirects {
		require.Equal(t, "/login", r)
	}
}

// The original request is retried at most once: if it still comes back
// expired the 401 is surfaced, not recovered again.
func TestRetriesOriginalRequestOnlyOnce(t *testing.T) {
	var refreshCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false, "code": "TOKEN_EXPIRED",
		})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	resp, err := c.Get(context.Background(), "/api/protected")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	require.Equal(t, int64(1), atomic.LoadInt64(&refreshCalls))
}

// SESSION_INVALIDATED is terminal: no refresh attempt is made.
func TestSessionInvalidatedSkipsRefresh(t *testing.T) {
	var refreshCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/protected", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false, "message": "Session invalidated. Another device has logged in.",
			"code": "SESSION_INVALIDATED",
		})
	})
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var redirect string
	c, err := New(srv.URL, WithSessionEndHandler(func(p string) { redirect = p }))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/api/protected")
	require.ErrorIs(t, err, ErrSessionEnded)
	require.Equal(t, int64(0), atomic.LoadInt64(&refreshCalls))
	require.Equal(t, "/login", redirect)
}

// The refresh endpoint itself must never recurse into refresh recovery.
func TestRefreshEndpointIsExempt(t *testing.T) {
	var refreshCalls int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&refreshCalls, 1)
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
			"success": false, "code": "TOKEN_EXPIRED",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)
	resp, err := c.Post(context.Background(), "/api/auth/refresh", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.Status)
	require.Equal(t, int64(1), atomic.LoadInt64(&refreshCalls))
}

func TestLoginRedirect(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/courses/abc", "/login"},
		{"/", "/login"},
		{"/admin", "/admin/login"},
		{"/admin/courses", "/admin/login"},
		{"/administrator", "/login"},
		{"/login", ""},
		{"/admin/login", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, LoginRedirect(tc.path), "path %s", tc.path)
	}
}

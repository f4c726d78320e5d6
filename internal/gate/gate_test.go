package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskconsole/internal/access"
	"taskconsole/internal/auth"
	"taskconsole/internal/backend"
	"taskconsole/internal/config"
	"taskconsole/internal/session"
	"taskconsole/internal/storage"
	"taskconsole/internal/token"
)

type fakeFetcher struct {
	tree []access.Module
	err  error
}

func (f *fakeFetcher) AccessibleModulesAndMenus(_ context.Context, _, _ int64) ([]access.Module, error) {
	return f.tree, f.err
}

func signedToken(t *testing.T, userID, name string, exp int64) string {
	t.Helper()
	claims := jwt.MapClaims{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier": userID,
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name":           name,
		"IsActive": "True",
	}
	if exp != 0 {
		claims["exp"] = exp
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func newGate(t *testing.T, fetcher access.TreeFetcher) (*Gate, *session.Store, storage.Store) {
	t.Helper()
	st := storage.NewMemoryStore()
	sess := session.NewStore(st, token.NewCodec(zap.NewNop()), zap.NewNop())
	g := New(sess, access.NewResolver(fetcher, zap.NewNop()), st, 1, zap.NewNop())
	return g, sess, st
}

func okHandler() (http.Handler, *bool) {
	served := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
		w.WriteHeader(http.StatusOK)
	}), &served
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthenticated navigation redirects to login", func(t *testing.T) {
		g, _, _ := newGate(t, &fakeFetcher{})
		next, served := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAuth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, LoginRedirect, rec.Header().Get("Location"))
		assert.False(t, *served, "navigation must be cancelled, not delayed")
	})

	t.Run("valid session passes", func(t *testing.T) {
		g, sess, _ := newGate(t, &fakeFetcher{})
		require.NoError(t, sess.SetToken(ctx, signedToken(t, "7", "Ana", 0), 0))
		next, served := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAuth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *served)
	})

	t.Run("expired session redirects and purges", func(t *testing.T) {
		g, sess, _ := newGate(t, &fakeFetcher{})
		require.NoError(t, sess.SetToken(ctx, signedToken(t, "7", "Ana", time.Now().Add(-time.Minute).Unix()), 0))
		next, served := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAuth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.False(t, *served)
		_, ok := sess.Token(ctx)
		assert.False(t, ok)
	})
}

func TestRequireAccess(t *testing.T) {
	ctx := context.Background()

	authenticated := func(t *testing.T, fetcher access.TreeFetcher) *Gate {
		g, sess, _ := newGate(t, fetcher)
		require.NoError(t, sess.SetToken(ctx, signedToken(t, "7", "Ana", 0), 0))
		sess.Refresh(ctx)
		return g
	}

	tree := []access.Module{{Menus: []access.Menu{
		{Controller: "users", View: "list", IsVisible: true},
	}}}

	t.Run("allowed route proceeds", func(t *testing.T) {
		g := authenticated(t, &fakeFetcher{tree: tree})
		next, served := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAccess("users/list")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *served)
	})

	t.Run("denied route redirects to the fallback", func(t *testing.T) {
		g := authenticated(t, &fakeFetcher{tree: tree})
		next, served := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAccess("billing/list")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/list", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/users/list", rec.Header().Get("Location"))
		assert.False(t, *served)
	})

	t.Run("denied with empty tree redirects to login", func(t *testing.T) {
		g := authenticated(t, &fakeFetcher{})
		next, _ := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAccess("billing/list")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/list", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, LoginRedirect, rec.Header().Get("Location"))
	})

	t.Run("resolver failure redirects to the error page", func(t *testing.T) {
		g := authenticated(t, &fakeFetcher{err: errors.New("backend down")})
		next, served := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAccess("users/list")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, ErrorRedirect, rec.Header().Get("Location"))
		assert.False(t, *served)
	})

	t.Run("abandoned navigation produces no redirect", func(t *testing.T) {
		g := authenticated(t, &fakeFetcher{err: context.Canceled})
		next, served := okHandler()

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodGet, "/users/list", nil).WithContext(cancelled)

		rec := httptest.NewRecorder()
		g.RequireAccess("users/list")(next).ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Location"))
		assert.False(t, *served)
	})

	t.Run("non-numeric user id goes to the error page", func(t *testing.T) {
		g, sess, _ := newGate(t, &fakeFetcher{tree: tree})
		require.NoError(t, sess.SetToken(ctx, signedToken(t, "not-a-number", "Ana", 0), 0))
		sess.Refresh(ctx)
		next, _ := okHandler()

		rec := httptest.NewRecorder()
		g.RequireAccess("users/list")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/list", nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, ErrorRedirect, rec.Header().Get("Location"))
	})
}

// End to end: login against a stub backend, then navigate through both gates.
func TestLoginThenNavigate(t *testing.T) {
	raw := signedToken(t, "7", "Ana Torres", time.Now().Add(time.Hour).Unix())

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/Authentication":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"isSuccess": true,
				"data":      map[string]any{"token": raw, "expiresIn": 3600},
			})
		case "/GetAccessibleModulesAndMenus":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"isSuccess": true,
				"data": []map[string]any{{
					"moduleId": 1,
					"menus": []map[string]any{
						{"controller": "users", "view": "list", "isVisible": true},
					},
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer backendSrv.Close()

	st := storage.NewMemoryStore()
	sess := session.NewStore(st, token.NewCodec(zap.NewNop()), zap.NewNop())
	client := backend.NewClient(&config.BackendConfig{
		TransversalURL: backendSrv.URL,
		ApplicationURL: backendSrv.URL,
		RequestTimeout: 2 * time.Second,
	}, zap.NewNop())
	g := New(sess, access.NewResolver(client, zap.NewNop()), st, 1, zap.NewNop())
	authHandler := auth.NewHandler(client, sess, 1, zap.NewNop())

	r := chi.NewRouter()
	r.Mount("/authentication", authHandler.Routes())
	r.With(g.RequireAuth, g.RequireAccess("users/list")).Get("/users/list", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("users page"))
	})

	gateway := httptest.NewServer(r)
	defer gateway.Close()
	httpClient := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	// Before login the gate bounces to the login route.
	resp, err := httpClient.Get(gateway.URL + "/users/list")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, LoginRedirect, resp.Header.Get("Location"))

	// Login stores the token.
	body, _ := json.Marshal(map[string]string{"email": "ana@example.com", "password": "secret-password"})
	resp, err = httpClient.Post(gateway.URL+"/authentication/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stored, ok := sess.Token(context.Background())
	require.True(t, ok)
	assert.Equal(t, raw, stored)

	// Both gates pass and the page renders.
	resp, err = httpClient.Get(gateway.URL + "/users/list")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// End to end: a token cleared behind the console's back converges to an
// empty header display within one watcher interval.
func TestExternalLogoutConverges(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemoryStore()
	sess := session.NewStore(st, token.NewCodec(zap.NewNop()), zap.NewNop())
	require.NoError(t, sess.SetToken(ctx, signedToken(t, "7", "Ana", 0), 0))
	sess.Refresh(ctx)
	require.NotNil(t, sess.Current())

	w := session.NewWatcher(sess, st, 10*time.Millisecond, zap.NewNop())
	w.Start(ctx)
	defer w.Stop()

	// Let the watcher observe the current token, then clear it externally.
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, st.DeletePair(ctx, storage.KeyAuthToken, storage.KeyTokenExpiration))

	assert.Eventually(t, func() bool {
		return sess.Current() == nil
	}, 2*time.Second, 5*time.Millisecond)
}

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskconsole/internal/config"
)

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(&config.BackendConfig{
		TransversalURL: url,
		ApplicationURL: url,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     2,
	}, zap.NewNop())
}

func envelope(w http.ResponseWriter, status int, isSuccess bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"isSuccess": isSuccess,
		"message":   message,
		"data":      data,
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts bare token data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/Authentication", r.URL.Path)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ana@example.com", body["userName"])
			envelope(w, http.StatusOK, true, "", "aaa.bbb.ccc")
		}))
		defer srv.Close()

		res, err := newClient(t, srv.URL).Login(ctx, "ana@example.com", "secret123", 1)
		require.NoError(t, err)
		assert.Equal(t, "aaa.bbb.ccc", res.Token)
		assert.Zero(t, res.ExpiresIn)
	})

	t.Run("accepts token object with expiresIn", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			envelope(w, http.StatusOK, true, "", map[string]any{"token": "aaa.bbb.ccc", "expiresIn": 3600})
		}))
		defer srv.Close()

		res, err := newClient(t, srv.URL).Login(ctx, "ana@example.com", "secret123", 1)
		require.NoError(t, err)
		assert.Equal(t, "aaa.bbb.ccc", res.Token)
		assert.Equal(t, int64(3600), res.ExpiresIn)
	})

	t.Run("maps status classes to user messages", func(t *testing.T) {
		cases := []struct {
			name    string
			status  int
			message string
		}{
			{"rate limited", http.StatusTooManyRequests, MsgLoginRateLimited},
			{"unauthorized", http.StatusUnauthorized, MsgLoginInvalidCreds},
			{"bad request", http.StatusBadRequest, MsgLoginInvalidCreds},
			{"server error", http.StatusInternalServerError, MsgLoginServerError},
			{"bad gateway", http.StatusBadGateway, MsgLoginServerError},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					envelope(w, tc.status, false, "", nil)
				}))
				defer srv.Close()

				_, err := newClient(t, srv.URL).Login(ctx, "ana@example.com", "wrong", 1)
				var loginErr *LoginError
				require.ErrorAs(t, err, &loginErr)
				assert.Equal(t, tc.status, loginErr.Status)
				assert.Equal(t, tc.message, loginErr.Message)
			})
		}
	})

	t.Run("unreachable server maps to connectivity message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nothing is listening anymore

		_, err := newClient(t, srv.URL).Login(ctx, "ana@example.com", "secret123", 1)
		var loginErr *LoginError
		require.ErrorAs(t, err, &loginErr)
		assert.Zero(t, loginErr.Status)
		assert.Equal(t, MsgLoginNoConnection, loginErr.Message)
	})

	t.Run("failed envelope keeps the backend message", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			envelope(w, http.StatusOK, false, "usuario bloqueado", nil)
		}))
		defer srv.Close()

		_, err := newClient(t, srv.URL).Login(ctx, "ana@example.com", "secret123", 1)
		var loginErr *LoginError
		require.ErrorAs(t, err, &loginErr)
		assert.Equal(t, "usuario bloqueado", loginErr.Message)
	})
}

func TestAccessibleModulesAndMenus(t *testing.T) {
	ctx := context.Background()

	tree := []map[string]any{
		{
			"moduleId":          1,
			"moduleDescription": "Administración",
			"icon":              "settings",
			"menus": []map[string]any{
				{"menuId": 10, "controller": "tasks", "view": "list", "isVisible": true},
			},
		},
	}

	t.Run("fetches and decodes the tree", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/GetAccessibleModulesAndMenus", r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("applicationId"))
			assert.Equal(t, "7", r.URL.Query().Get("userId"))
			envelope(w, http.StatusOK, true, "", tree)
		}))
		defer srv.Close()

		modules, err := newClient(t, srv.URL).AccessibleModulesAndMenus(ctx, 1, 7)
		require.NoError(t, err)
		require.Len(t, modules, 1)
		require.Len(t, modules[0].Menus, 1)
		assert.Equal(t, "tasks/list", modules[0].Menus[0].Path())
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				envelope(w, http.StatusInternalServerError, false, "temporal", nil)
				return
			}
			envelope(w, http.StatusOK, true, "", tree)
		}))
		defer srv.Close()

		modules, err := newClient(t, srv.URL).AccessibleModulesAndMenus(ctx, 1, 7)
		require.NoError(t, err)
		assert.Len(t, modules, 1)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("does not retry 4xx answers", func(t *testing.T) {
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			envelope(w, http.StatusForbidden, false, "denegado", nil)
		}))
		defer srv.Close()

		_, err := newClient(t, srv.URL).AccessibleModulesAndMenus(ctx, 1, 7)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
		assert.Equal(t, int64(1), calls.Load())
	})
}

func TestTaskMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Tasks/metrics", r.URL.Path)
		envelope(w, http.StatusOK, true, "", map[string]any{
			"totalTasks":           10,
			"completedTasks":       4,
			"pendingTasks":         6,
			"completionPercentage": 40.0,
		})
	}))
	defer srv.Close()

	metrics, err := newClient(t, srv.URL).GetTaskMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), metrics.TotalTasks)
	assert.Equal(t, int64(4), metrics.CompletedTasks)
	assert.Equal(t, int64(6), metrics.PendingTasks)
	assert.InDelta(t, 40.0, metrics.CompletionPercentage, 0.001)
}

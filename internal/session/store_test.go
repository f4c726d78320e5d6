package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskconsole/internal/storage"
	"taskconsole/internal/token"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func userToken(t *testing.T, name string, exp int64) string {
	t.Helper()
	claims := jwt.MapClaims{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier": "7",
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name":           name,
		"IsActive": "True",
	}
	if exp != 0 {
		claims["exp"] = exp
	}
	return signedToken(t, claims)
}

func newStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	st := storage.NewMemoryStore()
	return NewStore(st, token.NewCodec(zap.NewNop()), zap.NewNop()), st
}

func TestStoreSetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("persists token and paired expiration", func(t *testing.T) {
		s, st := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", 0), 3600))

		raw, ok := s.Token(ctx)
		assert.True(t, ok)
		assert.True(t, token.WellFormed(raw))

		expStr, ok, err := st.Get(ctx, storage.KeyTokenExpiration)
		require.NoError(t, err)
		require.True(t, ok)
		exp, err := time.Parse(time.RFC3339, expStr)
		require.NoError(t, err)
		assert.True(t, exp.After(time.Now()))
	})

	t.Run("without expiresIn clears stale expiration", func(t *testing.T) {
		s, st := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", 0), 3600))
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", 0), 0))
		_, ok, err := st.Get(ctx, storage.KeyTokenExpiration)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects malformed tokens before storage", func(t *testing.T) {
		s, st := newStore(t)
		assert.ErrorIs(t, s.SetToken(ctx, "not-a-token", 0), ErrMalformedToken)
		_, ok, err := st.Get(ctx, storage.KeyAuthToken)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStoreValid(t *testing.T) {
	ctx := context.Background()

	t.Run("valid unexpired token", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", time.Now().Add(time.Hour).Unix()), 0))
		assert.True(t, s.Valid(ctx))
	})

	t.Run("token without exp is valid", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", 0), 0))
		assert.True(t, s.Valid(ctx))
	})

	t.Run("expired token is purged", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", time.Now().Add(-time.Minute).Unix()), 0))

		assert.False(t, s.Valid(ctx))
		_, ok := s.Token(ctx)
		assert.False(t, ok, "expired token must be removed from storage")
	})

	t.Run("externally planted malformed token is purged", func(t *testing.T) {
		s, st := newStore(t)
		require.NoError(t, st.Set(ctx, storage.KeyAuthToken, "only.two"))

		assert.False(t, s.Valid(ctx))
		_, ok := s.Token(ctx)
		assert.False(t, ok)
	})

	t.Run("absent token is invalid without side effects", func(t *testing.T) {
		s, _ := newStore(t)
		ch, cancel := s.Subscribe()
		defer cancel()
		<-ch // replayed current value

		assert.False(t, s.Valid(ctx))
		select {
		case v := <-ch:
			t.Fatalf("unexpected emission %v", v)
		default:
		}
	})
}

func TestStoreClear(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.SetToken(ctx, userToken(t, "Ana", 0), 3600))
	s.Refresh(ctx)

	ch, cancel := s.Subscribe()
	defer cancel()
	require.NotNil(t, <-ch) // latest-value replay

	// Idempotent teardown: every call emits exactly one nil.
	s.Clear(ctx)
	s.Clear(ctx)

	assert.Nil(t, <-ch)
	assert.Nil(t, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra emission %v", v)
	default:
	}
	_, ok := s.Token(ctx)
	assert.False(t, ok)
}

func TestStoreRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes decoded claims", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Ana Torres", 0), 0))
		s.Refresh(ctx)

		claims := s.Current()
		require.NotNil(t, claims)
		assert.Equal(t, "Ana Torres", claims.UserName)
		assert.True(t, s.Active())
	})

	t.Run("absent token publishes nil", func(t *testing.T) {
		s, _ := newStore(t)
		s.Refresh(ctx)
		assert.Nil(t, s.Current())
		assert.False(t, s.Active())
	})
}

func TestWatcher(t *testing.T) {
	ctx := context.Background()

	t.Run("focus signal converges on external token change", func(t *testing.T) {
		s, st := newStore(t)
		w := NewWatcher(s, st, time.Hour, zap.NewNop()) // tick far away; focus drives the test
		w.Start(ctx)
		defer w.Stop()

		ch, cancel := s.Subscribe()
		defer cancel()
		<-ch // replayed current value

		// Another tab logs in.
		require.NoError(t, st.Set(ctx, storage.KeyAuthToken, userToken(t, "Luis", 0)))
		w.Focus()

		select {
		case claims := <-ch:
			require.NotNil(t, claims)
			assert.Equal(t, "Luis", claims.UserName)
		case <-time.After(2 * time.Second):
			t.Fatal("claims stream did not converge after focus")
		}
	})

	t.Run("timer tick converges on external logout", func(t *testing.T) {
		s, st := newStore(t)
		require.NoError(t, s.SetToken(ctx, userToken(t, "Luis", 0), 0))
		s.Refresh(ctx)

		w := NewWatcher(s, st, 10*time.Millisecond, zap.NewNop())
		w.Start(ctx)
		defer w.Stop()

		ch, cancel := s.Subscribe()
		defer cancel()
		<-ch

		// First observation records the current token; then another tab clears it.
		time.Sleep(30 * time.Millisecond)
		require.NoError(t, st.Delete(ctx, storage.KeyAuthToken))

		deadline := time.After(2 * time.Second)
		for {
			select {
			case claims := <-ch:
				if claims == nil {
					return
				}
			case <-deadline:
				t.Fatal("claims stream did not converge after external logout")
			}
		}
	})

	t.Run("stop is safe to call twice", func(t *testing.T) {
		s, st := newStore(t)
		w := NewWatcher(s, st, time.Hour, zap.NewNop())
		w.Start(ctx)
		w.Stop()
		w.Stop()
	})
}

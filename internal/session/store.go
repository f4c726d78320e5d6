package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskconsole/internal/storage"
	"taskconsole/internal/token"
)

// Store owns the current token and its derived claims snapshot. Claims are
// present exactly when a well-formed, unexpired token is stored; every
// failure path collapses the session to absent rather than surfacing an
// error. Observers subscribe to the claims stream and always receive the
// latest value first.
type Store struct {
	storage storage.Store
	codec   *token.Codec
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	current *token.Claims
	subs    map[int]chan *token.Claims
	nextSub int
}

func NewStore(st storage.Store, codec *token.Codec, logger *zap.Logger) *Store {
	s := &Store{
		storage: st,
		codec:   codec,
		logger:  logger,
		now:     time.Now,
		subs:    make(map[int]chan *token.Claims),
	}
	// Read storage once at construction so the snapshot reflects whatever a
	// previous run left behind.
	s.Refresh(context.Background())
	return s
}

// Token returns the stored credential, if any.
func (s *Store) Token(ctx context.Context) (string, bool) {
	v, ok, err := s.storage.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		s.logger.Error("failed to read token from storage", zap.Error(err))
		return "", false
	}
	return v, ok
}

// SetToken persists the credential and, when expiresIn is positive, the
// absolute expiration instant. Both keys are written in one operation.
func (s *Store) SetToken(ctx context.Context, raw string, expiresIn int64) error {
	if !token.WellFormed(raw) {
		s.logger.Warn("refusing to store malformed token")
		return ErrMalformedToken
	}
	expiration := ""
	if expiresIn > 0 {
		expiration = s.now().Add(time.Duration(expiresIn) * time.Second).UTC().Format(time.RFC3339)
	}
	return s.storage.SetPair(ctx, storage.KeyAuthToken, raw, storage.KeyTokenExpiration, expiration)
}

// Clear removes the token and its expiration and publishes an absent session.
// Calling it twice emits nil twice; each call is a full teardown.
func (s *Store) Clear(ctx context.Context) {
	if err := s.storage.DeletePair(ctx, storage.KeyAuthToken, storage.KeyTokenExpiration); err != nil {
		s.logger.Error("failed to clear token from storage", zap.Error(err))
	}
	s.publish(nil)
}

// Refresh re-derives the claims snapshot from the stored token and publishes
// the result. A token with the wrong segment count is purged as a side effect.
func (s *Store) Refresh(ctx context.Context) {
	raw, ok := s.Token(ctx)
	if !ok {
		s.publish(nil)
		return
	}
	if !token.WellFormed(raw) {
		s.Clear(ctx)
		return
	}
	claims := s.codec.Decode(raw)
	if claims == nil {
		s.publish(nil)
		return
	}
	s.publish(claims)
}

// Valid reports whether a usable session exists: token present, well formed,
// decodable and, when it carries an expiry, not yet expired. Invalid tokens
// are purged, not merely reported.
func (s *Store) Valid(ctx context.Context) bool {
	raw, ok := s.Token(ctx)
	if !ok {
		return false
	}
	if !token.WellFormed(raw) {
		s.Clear(ctx)
		return false
	}
	claims := s.codec.Decode(raw)
	if claims == nil {
		s.Clear(ctx)
		return false
	}
	if claims.ExpiresAt != 0 && !s.now().Before(time.Unix(claims.ExpiresAt, 0)) {
		s.Clear(ctx)
		return false
	}
	return true
}

// Current returns the latest published claims snapshot.
func (s *Store) Current() *token.Claims {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Active reports whether the current snapshot belongs to an active user.
func (s *Store) Active() bool {
	c := s.Current()
	return c != nil && c.IsActive
}

// Subscribe registers an observer of the claims stream. The latest value is
// delivered immediately; the returned cancel function must be called exactly
// once when the observer goes away.
func (s *Store) Subscribe() (<-chan *token.Claims, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan *token.Claims, 8)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.current

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(claims *token.Claims) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = claims
	for _, ch := range s.subs {
		select {
		case ch <- claims:
		default:
			// Slow observer: drop its oldest pending value so the channel
			// always converges on the latest snapshot.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- claims:
			default:
			}
		}
	}
}

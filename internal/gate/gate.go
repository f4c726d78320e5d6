package gate

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"taskconsole/internal/access"
	"taskconsole/internal/session"
	"taskconsole/internal/storage"
)

const (
	// LoginRedirect is where unauthenticated or fallback-less navigation lands.
	LoginRedirect = "/" + access.LoginRoute
	// ErrorRedirect is the generic navigation-failure page.
	ErrorRedirect = "/error-500"
)

// Gate intercepts navigation. Authentication (a valid session) is checked
// first; authorization (permission-tree membership) only for routes that
// require it. A denied navigation is redirected, never merely delayed.
type Gate struct {
	session  *session.Store
	resolver *access.Resolver
	storage  storage.Store
	appID    int64
	logger   *zap.Logger
}

func New(sess *session.Store, resolver *access.Resolver, st storage.Store, defaultApplicationID int64, logger *zap.Logger) *Gate {
	return &Gate{
		session:  sess,
		resolver: resolver,
		storage:  st,
		appID:    defaultApplicationID,
		logger:   logger,
	}
}

// RequireAuth cancels navigation without a valid session and redirects to
// the login route. Session validity purges expired tokens as a side effect.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.session.Valid(r.Context()) {
			http.Redirect(w, r, LoginRedirect, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccess gates one logical route ("users/list") behind the permission
// tree. It assumes RequireAuth already ran. The resolver call rides the
// request context: navigation abandoned by the client cancels the fetch and
// its result is discarded.
func (g *Gate) RequireAccess(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := g.session.Current()
			if claims == nil {
				http.Redirect(w, r, LoginRedirect, http.StatusSeeOther)
				return
			}
			userID, err := strconv.ParseInt(claims.UserID, 10, 64)
			if err != nil {
				g.logger.Warn("claims carry a non-numeric user id", zap.String("userId", claims.UserID))
				http.Redirect(w, r, ErrorRedirect, http.StatusSeeOther)
				return
			}

			decision := g.resolver.CheckAccess(r.Context(), g.applicationID(r.Context()), userID, route)
			if r.Context().Err() != nil {
				// The client went elsewhere while the tree was in flight;
				// the stale decision must not produce a redirect.
				return
			}

			switch decision.Outcome {
			case access.OutcomeAllowed:
				next.ServeHTTP(w, r)
			case access.OutcomeDenied:
				target := LoginRedirect
				if decision.Fallback != "" {
					target = "/" + decision.Fallback
				}
				g.logger.Info("navigation denied",
					zap.String("route", route),
					zap.String("fallback", target),
				)
				http.Redirect(w, r, target, http.StatusSeeOther)
			default:
				http.Redirect(w, r, ErrorRedirect, http.StatusSeeOther)
			}
		})
	}
}

// applicationID reads the stored application id, falling back to the
// configured default when absent or unparseable.
func (g *Gate) applicationID(ctx context.Context) int64 {
	raw, ok, err := g.storage.Get(ctx, storage.KeyApplicationID)
	if err != nil || !ok {
		return g.appID
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return g.appID
	}
	return id
}

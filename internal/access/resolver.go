package access

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// LoginRoute is never subject to permission checks.
const LoginRoute = "authentication/login"

type Outcome int

const (
	OutcomeAllowed Outcome = iota
	OutcomeDenied
	OutcomeError
)

// Decision is the typed result of an access check. Fallback is only set for
// Denied and may be empty when the tree offers no route at all; callers must
// then send the user to login rather than loop.
type Decision struct {
	Outcome  Outcome
	Fallback string
}

// TreeFetcher retrieves the permission tree for an (applicationId, userId)
// pair. The tree is not cached here; it is fetched per check.
type TreeFetcher interface {
	AccessibleModulesAndMenus(ctx context.Context, applicationID, userID int64) ([]Module, error)
}

type Resolver struct {
	fetcher TreeFetcher
	logger  *zap.Logger
}

func NewResolver(fetcher TreeFetcher, logger *zap.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, logger: logger}
}

// CheckAccess decides whether requestedPath is reachable for the user. A
// route-parameter suffix ("/:id" and beyond) is stripped before matching.
// Backend failure yields OutcomeError, which callers must treat as deny.
func (r *Resolver) CheckAccess(ctx context.Context, applicationID, userID int64, requestedPath string) Decision {
	path := normalizePath(requestedPath)

	// Re-entering login past the gate is always bounced back to login,
	// without a network call.
	if path == LoginRoute {
		return Decision{Outcome: OutcomeDenied, Fallback: LoginRoute}
	}

	tree, err := r.fetcher.AccessibleModulesAndMenus(ctx, applicationID, userID)
	if err != nil {
		r.logger.Warn("failed to fetch permission tree",
			zap.Int64("applicationId", applicationID),
			zap.Int64("userId", userID),
			zap.Error(err),
		)
		return Decision{Outcome: OutcomeError}
	}

	for _, module := range tree {
		for _, menu := range module.Menus {
			if menu.Path() == path {
				return Decision{Outcome: OutcomeAllowed}
			}
		}
	}

	return Decision{Outcome: OutcomeDenied, Fallback: fallbackPath(tree)}
}

// fallbackPath picks the redirect target for a denied request: the first
// visible entry in module order, then menu order; failing that, the first
// entry of any visibility. Deterministic by construction.
func fallbackPath(tree []Module) string {
	first := ""
	for _, module := range tree {
		for _, menu := range module.Menus {
			if first == "" {
				first = menu.Path()
			}
			if menu.IsVisible {
				return menu.Path()
			}
		}
	}
	return first
}

func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.Index(path, "/:"); i >= 0 {
		path = path[:i]
	}
	return path
}

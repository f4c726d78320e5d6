package access

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taskconsole/internal/httpx"
	"taskconsole/internal/session"
)

// Handler serves the sidebar: the permission tree for the current session.
type Handler interface {
	Routes() chi.Router
}

type handler struct {
	logger        *zap.Logger
	fetcher       TreeFetcher
	session       *session.Store
	applicationID int64
}

func NewHandler(fetcher TreeFetcher, sess *session.Store, applicationID int64, l *zap.Logger) Handler {
	return &handler{
		logger:        l,
		fetcher:       fetcher,
		session:       sess,
		applicationID: applicationID,
	}
}

func (h *handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Menus)
	return r
}

func (h *handler) Menus(w http.ResponseWriter, r *http.Request) {
	claims := h.session.Current()
	if claims == nil {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "no active session",
		})
		return
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		h.logger.Warn("claims carry a non-numeric user id", zap.String("userId", claims.UserID))
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "no active session",
		})
		return
	}

	tree, err := h.fetcher.AccessibleModulesAndMenus(r.Context(), h.applicationID, userID)
	if err != nil {
		h.logger.Warn("failed to fetch sidebar tree", zap.Error(err))
		httpx.WriteError(w, http.StatusBadGateway, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUpstream,
			Message: "failed to load accessible modules",
		})
		return
	}

	// The sidebar only renders visible entries.
	out := make([]Module, 0, len(tree))
	for _, module := range tree {
		visible := Module{
			ModuleID:    module.ModuleID,
			Description: module.Description,
			Icon:        module.Icon,
		}
		for _, menu := range module.Menus {
			if menu.IsVisible {
				visible.Menus = append(visible.Menus, menu)
			}
		}
		if len(visible.Menus) > 0 {
			out = append(out, visible)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

package prefs

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"taskconsole/internal/httpx"
	"taskconsole/internal/storage"
)

// Theme flags, persisted as JSON booleans in the key-value store under the
// same names the original front-end used.
var themeKeys = []string{
	"isDarkTheme",
	"isSidebarDarkTheme",
	"isRightSidebarTheme",
	"isHideSidebarTheme",
	"isHeaderDarkTheme",
	"isCardBorderTheme",
	"isCardBorderRadiusTheme",
	"isRTLEnabledTheme",
}

type Handler interface {
	Routes() chi.Router
}

type handler struct {
	logger  *zap.Logger
	storage storage.Store
}

func NewHandler(st storage.Store, l *zap.Logger) Handler {
	return &handler{logger: l, storage: st}
}

func (h *handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	r.Put("/", h.Put)
	return r
}

func (h *handler) Get(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]bool, len(themeKeys))
	for _, key := range themeKeys {
		raw, ok, err := h.storage.Get(r.Context(), key)
		if err != nil {
			h.logger.Error("failed to read preference", zap.String("key", key), zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "failed to read preferences",
			})
			return
		}
		// Unset or unreadable flags default to false, as in the browser.
		value, _ := strconv.ParseBool(raw)
		out[key] = ok && value
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *handler) Put(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var in map[string]bool
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "invalid request body",
		})
		return
	}

	for key, value := range in {
		if !knownKey(key) {
			httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "unknown preference: " + key,
			})
			return
		}
		if err := h.storage.Set(r.Context(), key, strconv.FormatBool(value)); err != nil {
			h.logger.Error("failed to persist preference", zap.String("key", key), zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: "failed to persist preferences",
			})
			return
		}
	}
	h.Get(w, r)
}

func knownKey(key string) bool {
	for _, k := range themeKeys {
		if k == key {
			return true
		}
	}
	return false
}

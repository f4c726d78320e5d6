package user

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"taskconsole/internal/backend"
	"taskconsole/internal/httpx"
)

// Handler proxies the user administration screens to the application API,
// keeping the backend's field vocabulary end to end.
type Handler interface {
	Routes() chi.Router
}

type handler struct {
	logger    *zap.Logger
	backend   *backend.Client
	validator *validator.Validate
}

func NewHandler(client *backend.Client, l *zap.Logger) Handler {
	return &handler{
		logger:    l,
		backend:   client,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/by-email", h.GetByEmail)
	r.Get("/{userId}", h.GetByID)
	r.Put("/{userId}", h.Update)
	r.Delete("/{userId}", h.Delete)
	return r
}

func (h *handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := backend.UserFilters{
		NameUser:         q.Get("nameUser"),
		EmailUser:        q.Get("emailUser"),
		PhoneUser:        q.Get("phoneUser"),
		SpecialitiesUser: q.Get("specialitiesUser"),
	}
	if v := q.Get("isActiveUser"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "isActiveUser must be a boolean",
			})
			return
		}
		filters.IsActiveUser = &active
	}
	filters.PageNumber, _ = strconv.Atoi(q.Get("pageNumber"))
	filters.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	data, err := h.backend.ListUsers(r.Context(), filters)
	if err != nil {
		h.upstreamError(w, "failed to list users", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) Create(w http.ResponseWriter, r *http.Request) {
	var in backend.CreateUserInput
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}
	data, err := h.backend.CreateUser(r.Context(), in)
	if err != nil {
		h.upstreamError(w, "failed to create user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, data)
}

func (h *handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	data, err := h.backend.GetUserByID(r.Context(), id)
	if err != nil {
		h.upstreamError(w, "failed to fetch user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := h.validator.Var(email, "required,email"); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "email must be a valid address",
		})
		return
	}
	data, err := h.backend.GetUserByEmail(r.Context(), email)
	if err != nil {
		h.upstreamError(w, "failed to fetch user by email", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in backend.UpdateUserInput
	if !h.decode(w, r, &in) {
		return
	}
	in.UserID = id
	if !h.validate(w, in) {
		return
	}
	data, err := h.backend.UpdateUser(r.Context(), in)
	if err != nil {
		h.upstreamError(w, "failed to update user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	data, err := h.backend.DeleteUser(r.Context(), id)
	if err != nil {
		h.upstreamError(w, "failed to delete user", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "userId must be a positive integer",
		})
		return 0, false
	}
	return id, true
}

func (h *handler) decode(w http.ResponseWriter, r *http.Request, in any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(in); err != nil {
		h.logger.Warn("failed to decode user request body", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "invalid request body",
		})
		return false
	}
	return true
}

func (h *handler) validate(w http.ResponseWriter, in any) bool {
	if err := h.validator.Struct(in); err != nil {
		h.logger.Warn("user validation failed", zap.Error(err))
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[[]httpx.FieldError]{
			Code:    httpx.ErrValidationFailed,
			Message: "validation failed",
			Details: httpx.ValidationDetails(err),
		})
		return false
	}
	return true
}

func (h *handler) upstreamError(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, zap.Error(err))
	if apiErr, ok := err.(*backend.APIError); ok {
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		httpx.WriteError(w, status, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUpstream,
			Message: apiErr.Message,
		})
		return
	}
	httpx.WriteError(w, http.StatusBadGateway, httpx.ErrorResponse[any]{
		Code:    httpx.ErrUpstream,
		Message: "application service is unavailable",
	})
}

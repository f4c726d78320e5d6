package task

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

type Handler interface {
	Routes() chi.Router
	Metrics(w http.ResponseWriter, r *http.Request)
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
	r.Get("/metrics", h.Metrics)
	r.Get("/{taskId}", h.GetByID)
	r.Put("/{taskId}", h.Update)
	r.Delete("/{taskId}", h.Delete)
	return r
}

func (h *handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := backend.TaskFilters{SearchTerm: q.Get("searchTerm")}
	filters.TaskStatusID, _ = strconv.ParseInt(q.Get("taskStatusId"), 10, 64)
	filters.PageNumber, _ = strconv.Atoi(q.Get("pageNumber"))
	filters.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	data, err := h.backend.ListTasks(r.Context(), filters)
	if err != nil {
		h.upstreamError(w, "failed to list tasks", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) Create(w http.ResponseWriter, r *http.Request) {
	var in backend.CreateTaskInput
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}
	data, err := h.backend.CreateTask(r.Context(), in)
	if err != nil {
		h.upstreamError(w, "failed to create task", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, data)
}

func (h *handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	data, err := h.backend.GetTaskByID(r.Context(), id)
	if err != nil {
		h.upstreamError(w, "failed to fetch task", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in backend.UpdateTaskInput
	if !h.decode(w, r, &in) {
		return
	}
	in.TaskID = id
	if !h.validate(w, in) {
		return
	}
	data, err := h.backend.UpdateTask(r.Context(), in)
	if err != nil {
		h.upstreamError(w, "failed to update task", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

func (h *handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	data, err := h.backend.DeleteTask(r.Context(), id)
	if err != nil {
		h.upstreamError(w, "failed to delete task", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, data)
}

// Metrics feeds the dashboard cards.
func (h *handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.backend.GetTaskMetrics(r.Context())
	if err != nil {
		h.upstreamError(w, "failed to fetch task metrics", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, metrics)
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "taskId"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "taskId must be a positive integer",
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
		h.logger.Warn("failed to decode task request body", zap.Error(err))
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
		h.logger.Warn("task validation failed", zap.Error(err))
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

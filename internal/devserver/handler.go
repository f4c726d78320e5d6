package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskconsole/internal/httpx"
)

// Handler serves the backend contract the console consumes: the transversal
// endpoints (Authentication, GetAccessibleModulesAndMenus) and the application
// API (Users, Tasks), all in the { isSuccess, message, data } envelope.
type Handler interface {
	Routes() chi.Router
}

type handler struct {
	logger    *zap.Logger
	users     UserStore
	tasks     TaskStore
	menus     MenuStore
	issuer    *Issuer
	validator *validator.Validate
}

func NewHandler(users UserStore, tasks TaskStore, menus MenuStore, issuer *Issuer, l *zap.Logger) Handler {
	return &handler{
		logger:    l,
		users:     users,
		tasks:     tasks,
		menus:     menus,
		issuer:    issuer,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/Authentication", h.Authenticate)
	r.Get("/GetAccessibleModulesAndMenus", h.AccessibleModulesAndMenus)

	r.Route("/Users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/by-email", h.GetUserByEmail)
		r.Get("/{userId}", h.GetUserByID)
		r.Put("/{userId}", h.UpdateUser)
		r.Delete("/{userId}", h.DeleteUser)
	})

	r.Route("/Tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Get("/metrics", h.TaskMetrics)
		r.Get("/{taskId}", h.GetTaskByID)
		r.Put("/{taskId}", h.UpdateTask)
		r.Delete("/{taskId}", h.DeleteTask)
	})

	return r
}

type authenticateRequest struct {
	UserName      string `json:"userName"      validate:"required,email"`
	Password      string `json:"password"      validate:"required,min=8"`
	ApplicationID int64  `json:"applicationId" validate:"required,gt=0"`
}

type authenticateResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

func (h *handler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var in authenticateRequest
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}

	u, err := h.users.GetByEmail(r.Context(), in.UserName)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeInvalidCredentials(w, in.UserName)
			return
		}
		h.storeError(w, "failed to look up user for authentication", err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		h.writeInvalidCredentials(w, in.UserName)
		return
	}
	if !u.IsActiveUser {
		h.logger.Warn("login rejected for inactive user", zap.Int64("userId", u.UserID))
		httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnauthorized,
			Message: "user account is inactive",
		})
		return
	}

	token, expiresIn, err := h.issuer.Issue(u)
	if err != nil {
		h.storeError(w, "failed to issue access token", err)
		return
	}
	h.logger.Info("user authenticated", zap.Int64("userId", u.UserID))
	httpx.WriteJSON(w, http.StatusOK, authenticateResponse{Token: token, ExpiresIn: expiresIn})
}

func (h *handler) AccessibleModulesAndMenus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	applicationID, err1 := strconv.ParseInt(q.Get("applicationId"), 10, 64)
	userID, err2 := strconv.ParseInt(q.Get("userId"), 10, 64)
	if err1 != nil || err2 != nil || applicationID <= 0 || userID <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "applicationId and userId must be positive integers",
		})
		return
	}

	modules, err := h.menus.AccessibleModulesAndMenus(r.Context(), applicationID, userID)
	if err != nil {
		h.storeError(w, "failed to resolve accessible menus", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, modules)
}

type createUserRequest struct {
	NameUser         string `json:"nameUser"         validate:"required,min=2,max=100"`
	EmailUser        string `json:"emailUser"        validate:"required,email"`
	PhoneUser        string `json:"phoneUser,omitempty"        validate:"omitempty,max=20"`
	SpecialitiesUser string `json:"specialitiesUser,omitempty" validate:"omitempty,max=200"`
	PasswordHashUser string `json:"passwordHashUser" validate:"required,min=8,max=72"`
	UserImage        string `json:"userImage,omitempty"`
}

type updateUserRequest struct {
	UserID           int64   `json:"userId,omitempty"`
	NameUser         *string `json:"nameUser,omitempty"         validate:"omitempty,min=2,max=100"`
	EmailUser        *string `json:"emailUser,omitempty"        validate:"omitempty,email"`
	PhoneUser        *string `json:"phoneUser,omitempty"        validate:"omitempty,max=20"`
	SpecialitiesUser *string `json:"specialitiesUser,omitempty" validate:"omitempty,max=200"`
	IsActiveUser     *bool   `json:"isActiveUser,omitempty"`
	UserImage        *string `json:"userImage,omitempty"`
}

func (h *handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in createUserRequest
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}

	// The wire field carries the plaintext password; only the bcrypt digest
	// is ever stored.
	hash, err := bcrypt.GenerateFromPassword([]byte(in.PasswordHashUser), bcrypt.DefaultCost)
	if err != nil {
		h.storeError(w, "failed to hash password", err)
		return
	}

	created, err := h.users.Create(r.Context(), &UserRecord{
		NameUser:         in.NameUser,
		EmailUser:        strings.ToLower(in.EmailUser),
		PhoneUser:        in.PhoneUser,
		SpecialitiesUser: in.SpecialitiesUser,
		UserImage:        in.UserImage,
		PasswordHash:     string(hash),
		IsActiveUser:     true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "a user with this email already exists",
			})
			return
		}
		h.storeError(w, "failed to create user", err)
		return
	}
	h.logger.Info("user created", zap.Int64("userId", created.UserID))
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}
	var in updateUserRequest
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}

	updated, err := h.users.Update(r.Context(), UserPatch{
		UserID:           id,
		NameUser:         in.NameUser,
		EmailUser:        in.EmailUser,
		PhoneUser:        in.PhoneUser,
		SpecialitiesUser: in.SpecialitiesUser,
		IsActiveUser:     in.IsActiveUser,
		UserImage:        in.UserImage,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			httpx.WriteError(w, http.StatusConflict, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "a user with this email already exists",
			})
			return
		}
		h.writeNotFoundOr(w, "failed to update user", err, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.writeNotFoundOr(w, "failed to delete user", err, "user not found")
		return
	}
	h.logger.Info("user deleted", zap.Int64("userId", id))
	httpx.WriteMessage(w, http.StatusOK, "user deleted", nil)
}

func (h *handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := UserQuery{
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
		query.IsActiveUser = &active
	}
	query.PageNumber, _ = strconv.Atoi(q.Get("pageNumber"))
	query.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	page, err := h.users.List(r.Context(), query)
	if err != nil {
		h.storeError(w, "failed to list users", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "userId")
	if !ok {
		return
	}
	u, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		h.writeNotFoundOr(w, "failed to fetch user", err, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (h *handler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := h.validator.Var(email, "required,email"); err != nil {
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: "email must be a valid address",
		})
		return
	}
	u, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		h.writeNotFoundOr(w, "failed to fetch user by email", err, "user not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

type createTaskRequest struct {
	TitleTask       string `json:"titleTask"       validate:"required,min=1,max=200"`
	DescriptionTask string `json:"descriptionTask,omitempty" validate:"omitempty,max=2000"`
	TaskStatusID    int64  `json:"taskStatusId"    validate:"required,gt=0"`
}

type updateTaskRequest struct {
	TaskID          int64   `json:"taskId,omitempty"`
	TitleTask       *string `json:"titleTask,omitempty"       validate:"omitempty,min=1,max=200"`
	DescriptionTask *string `json:"descriptionTask,omitempty" validate:"omitempty,max=2000"`
	TaskStatusID    *int64  `json:"taskStatusId,omitempty"    validate:"omitempty,gt=0"`
}

func (h *handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var in createTaskRequest
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}
	created, err := h.tasks.Create(r.Context(), &TaskRecord{
		TitleTask:       in.TitleTask,
		DescriptionTask: in.DescriptionTask,
		TaskStatusID:    in.TaskStatusID,
	})
	if err != nil {
		h.storeError(w, "failed to create task", err)
		return
	}
	h.logger.Info("task created", zap.Int64("taskId", created.TaskID))
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (h *handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "taskId")
	if !ok {
		return
	}
	var in updateTaskRequest
	if !h.decode(w, r, &in) || !h.validate(w, in) {
		return
	}
	updated, err := h.tasks.Update(r.Context(), TaskPatch{
		TaskID:          id,
		TitleTask:       in.TitleTask,
		DescriptionTask: in.DescriptionTask,
		TaskStatusID:    in.TaskStatusID,
	})
	if err != nil {
		h.writeNotFoundOr(w, "failed to update task", err, "task not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (h *handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "taskId")
	if !ok {
		return
	}
	if err := h.tasks.Delete(r.Context(), id); err != nil {
		h.writeNotFoundOr(w, "failed to delete task", err, "task not found")
		return
	}
	h.logger.Info("task deleted", zap.Int64("taskId", id))
	httpx.WriteMessage(w, http.StatusOK, "task deleted", nil)
}

func (h *handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := TaskQuery{SearchTerm: q.Get("searchTerm")}
	if v := q.Get("taskStatusId"); v != "" {
		statusID, err := strconv.ParseInt(v, 10, 64)
		if err != nil || statusID <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
				Code:    httpx.ErrValidationFailed,
				Message: "taskStatusId must be a positive integer",
			})
			return
		}
		query.TaskStatusID = statusID
	}
	query.PageNumber, _ = strconv.Atoi(q.Get("pageNumber"))
	query.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	page, err := h.tasks.List(r.Context(), query)
	if err != nil {
		h.storeError(w, "failed to list tasks", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *handler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "taskId")
	if !ok {
		return
	}
	t, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		h.writeNotFoundOr(w, "failed to fetch task", err, "task not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *handler) TaskMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.tasks.Metrics(r.Context())
	if err != nil {
		h.storeError(w, "failed to compute task metrics", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, metrics)
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrValidationFailed,
			Message: param + " must be a positive integer",
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
		h.logger.Warn("failed to decode request body", zap.Error(err))
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
		h.logger.Warn("request validation failed", zap.Error(err))
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[[]httpx.FieldError]{
			Code:    httpx.ErrValidationFailed,
			Message: "validation failed",
			Details: httpx.ValidationDetails(err),
		})
		return false
	}
	return true
}

func (h *handler) writeInvalidCredentials(w http.ResponseWriter, userName string) {
	h.logger.Warn("login rejected", zap.String("userName", userName))
	httpx.WriteError(w, http.StatusUnauthorized, httpx.ErrorResponse[any]{
		Code:    httpx.ErrUnauthorized,
		Message: "invalid credentials",
	})
}

func (h *handler) writeNotFoundOr(w http.ResponseWriter, msg string, err error, notFoundMsg string) {
	if errors.Is(err, ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, httpx.ErrorResponse[any]{
			Code:    httpx.ErrNotFound,
			Message: notFoundMsg,
		})
		return
	}
	h.storeError(w, msg, err)
}

func (h *handler) storeError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
		Code:    httpx.ErrInternal,
		Message: "internal server error",
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"taskconsole/internal/backend"
	"taskconsole/internal/httpx"
	"taskconsole/internal/session"
)

type Handler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Session(w http.ResponseWriter, r *http.Request)
	Routes() chi.Router
}

type handler struct {
	logger        *zap.Logger
	backend       *backend.Client
	session       *session.Store
	validator     *validator.Validate
	applicationID int64
}

func NewHandler(client *backend.Client, sess *session.Store, applicationID int64, l *zap.Logger) Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	return &handler{
		logger:        l,
		backend:       client,
		session:       sess,
		validator:     v,
		applicationID: applicationID,
	}
}

func (h *handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(httprate.LimitByIP(10, time.Minute)).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	return r
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		httpx.WriteError(w, http.StatusUnsupportedMediaType, httpx.ErrorResponse[any]{
			Code:    httpx.ErrUnsupportedMedia,
			Message: "Content-Type must be application/json",
		})
		return
	}

	var req loginRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("failed to decode login request body", zap.Error(err))
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "invalid request body",
		})
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		httpx.WriteError(w, http.StatusBadRequest, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInvalidJSON,
			Message: "request body must contain a single JSON object",
		})
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("login validation failed", zap.Error(err))
		httpx.WriteError(w, http.StatusUnprocessableEntity, httpx.ErrorResponse[[]httpx.FieldError]{
			Code:    httpx.ErrValidationFailed,
			Message: "validation failed",
			Details: httpx.ValidationDetails(err),
		})
		return
	}

	result, err := h.backend.Login(ctx, req.Email, req.Password, h.applicationID)
	if err != nil {
		var loginErr *backend.LoginError
		if !errors.As(err, &loginErr) {
			h.logger.Error("login failed with untyped error", zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
				Code:    httpx.ErrInternal,
				Message: backend.MsgLoginGeneric,
			})
			return
		}
		h.logger.Warn("login rejected", zap.Int("status", loginErr.Status))
		httpx.WriteError(w, loginStatus(loginErr.Status), httpx.ErrorResponse[any]{
			Code:    loginCode(loginErr.Status),
			Message: loginErr.Message,
		})
		return
	}

	if err := h.session.SetToken(ctx, result.Token, result.ExpiresIn); err != nil {
		h.logger.Error("failed to store login token", zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, httpx.ErrorResponse[any]{
			Code:    httpx.ErrInternal,
			Message: backend.MsgLoginMalformedResponse,
		})
		return
	}
	h.session.Refresh(ctx)

	httpx.WriteMessage(w, http.StatusOK, backend.MsgLoginSucceeded, nil)
}

func (h *handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Clear(r.Context())
	httpx.WriteMessage(w, http.StatusOK, backend.MsgLogoutSucceeded, nil)
}

// Session serves the current claims snapshot for the header display.
func (h *handler) Session(w http.ResponseWriter, r *http.Request) {
	claims := h.session.Current()
	if claims == nil {
		httpx.WriteJSON(w, http.StatusOK, sessionResponse{})
		return
	}
	specialities := claims.Specialities
	if specialities == "" {
		specialities = "Usuario"
	}
	httpx.WriteJSON(w, http.StatusOK, sessionResponse{
		UserID:       claims.UserID,
		UserName:     claims.UserName,
		Email:        claims.Email,
		Phone:        claims.Phone,
		IsActive:     claims.IsActive,
		Specialities: specialities,
		Initials:     initials(claims.UserName),
	})
}

type sessionResponse struct {
	UserID       string `json:"userId,omitempty"`
	UserName     string `json:"userName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	IsActive     bool   `json:"isActive,omitempty"`
	Specialities string `json:"specialities,omitempty"`
	Initials     string `json:"initials,omitempty"`
}

// initials derives the avatar label from a display name.
func initials(name string) string {
	parts := strings.Fields(strings.TrimSpace(name))
	if len(parts) == 0 {
		return "U"
	}
	first := []rune(parts[0])
	if len(parts) == 1 {
		return strings.ToUpper(string(first[0]))
	}
	last := []rune(parts[len(parts)-1])
	return strings.ToUpper(string(first[0]) + string(last[0]))
}

func loginStatus(status int) int {
	if status < http.StatusBadRequest {
		return http.StatusBadGateway
	}
	return status
}

func loginCode(status int) httpx.ErrorCode {
	switch {
	case status == http.StatusTooManyRequests:
		return httpx.ErrRateLimited
	case status == http.StatusUnauthorized || status == http.StatusBadRequest:
		return httpx.ErrUnauthorized
	case status == 0 || status >= http.StatusInternalServerError:
		return httpx.ErrUpstream
	default:
		return httpx.ErrUpstream
	}
}

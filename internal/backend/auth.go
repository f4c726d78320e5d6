package backend

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// User-facing login messages, keyed by HTTP status class. Wording and
// language match the messages the application has always shown.
const (
	MsgLoginRateLimited       = "Demasiados intentos. Por favor, espere antes de intentar nuevamente."
	MsgLoginInvalidCreds      = "Credenciales inválidas. Verifique su correo y contraseña."
	MsgLoginNoConnection      = "No se pudo conectar con el servidor. Verifique su conexión."
	MsgLoginServerError       = "Error del servidor. Intente más tarde."
	MsgLoginGeneric           = "Error al iniciar sesión"
	MsgLoginSucceeded         = "Inicio de sesión exitoso"
	MsgLogoutSucceeded        = "Sesión cerrada correctamente"
	MsgLoginMalformedResponse = "Error procesando la respuesta del servidor"
)

// LoginError carries the status the backend answered with (0 for transport
// failures) and the human-readable message to surface.
type LoginError struct {
	Status  int
	Message string
}

func (e *LoginError) Error() string {
	return e.Message
}

type LoginResult struct {
	Token     string
	ExpiresIn int64
}

type loginRequest struct {
	UserName      string `json:"userName"`
	Password      string `json:"password"`
	ApplicationID int64  `json:"applicationId"`
}

// loginData matches the backend's token payload; data may alternatively be a
// bare token string, which Login also accepts.
type loginData struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Login exchanges credentials for a token. Failures come back as *LoginError
// with a non-technical message; no raw transport error reaches the caller.
func (c *Client) Login(ctx context.Context, userName, password string, applicationID int64) (*LoginResult, error) {
	endpoint := c.transversalURL + "/Authentication"
	data, err := c.do(ctx, http.MethodPost, c.transversalURL, "Authentication", nil, loginRequest{
		UserName:      userName,
		Password:      password,
		ApplicationID: applicationID,
	})
	if err != nil {
		c.logger.Warn("login failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, loginErrorFrom(err)
	}

	// data is either "eyJ..." or { token, expiresIn }.
	var token string
	if err := json.Unmarshal(data, &token); err == nil && token != "" {
		return &LoginResult{Token: token}, nil
	}
	var payload loginData
	if err := json.Unmarshal(data, &payload); err != nil || payload.Token == "" {
		c.logger.Error("login response has no usable token")
		return nil, &LoginError{Status: http.StatusOK, Message: MsgLoginMalformedResponse}
	}
	return &LoginResult{Token: payload.Token, ExpiresIn: payload.ExpiresIn}, nil
}

func loginErrorFrom(err error) *LoginError {
	apiErr, ok := err.(*APIError)
	if !ok {
		// Transport failure: the server was never reached.
		return &LoginError{Status: 0, Message: MsgLoginNoConnection}
	}

	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		msg := apiErr.Message
		if msg == "" {
			msg = MsgLoginRateLimited
		}
		return &LoginError{Status: apiErr.Status, Message: msg}
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest:
		return &LoginError{Status: apiErr.Status, Message: MsgLoginInvalidCreds}
	case apiErr.Status >= http.StatusInternalServerError:
		return &LoginError{Status: apiErr.Status, Message: MsgLoginServerError}
	default:
		msg := apiErr.Message
		if msg == "" {
			msg = MsgLoginGeneric
		}
		return &LoginError{Status: apiErr.Status, Message: msg}
	}
}

package token

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// The identity claims arrive under the WS-* schema URIs the backend emits.
const (
	claimUserID = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	claimName   = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	claimEmail  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress"
	claimPhone  = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/mobilephone"
)

// Claims is the decoded identity snapshot derived from a bearer token. It is
// never mutated in place; a new token yields a new Claims.
type Claims struct {
	UserID       string
	UserName     string
	Email        string
	Phone        string
	IsActive     bool
	Specialities string
	IssuedAt     int64
	ExpiresAt    int64
}

// WellFormed reports whether raw splits into exactly three dot-separated
// segments. Tokens failing this are purged before any decode is attempted.
func WellFormed(raw string) bool {
	return len(strings.Split(raw, ".")) == 3
}

type Codec struct {
	logger *zap.Logger
	parser *jwt.Parser
}

func NewCodec(logger *zap.Logger) *Codec {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{
		logger: logger,
		parser: jwt.NewParser(),
	}
}

// Decode extracts Claims from a three-segment token without verifying the
// signature; the gateway is a token consumer, not its issuer. Any failure
// yields nil, never a panic: a token that cannot be read is no session.
func (c *Codec) Decode(raw string) *Claims {
	if raw == "" {
		return nil
	}
	if !WellFormed(raw) {
		c.logger.Debug("token is not a three-segment credential")
		return nil
	}

	payload := jwt.MapClaims{}
	if _, _, err := c.parser.ParseUnverified(raw, payload); err != nil {
		c.logger.Warn("failed to decode token payload", zap.Error(err))
		return nil
	}

	return &Claims{
		UserID:   stringClaim(payload, claimUserID),
		UserName: stringClaim(payload, claimName),
		Email:    stringClaim(payload, claimEmail),
		Phone:    stringClaim(payload, claimPhone),
		// Exact match on "True"; anything else, including "true", is inactive.
		IsActive:     stringClaim(payload, "IsActive") == "True",
		Specialities: stringClaim(payload, "Specialities"),
		IssuedAt:     numericClaim(payload, "iat"),
		ExpiresAt:    numericClaim(payload, "exp"),
	}
}

func stringClaim(payload jwt.MapClaims, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func numericClaim(payload jwt.MapClaims, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

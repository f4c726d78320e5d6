package devserver

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskconsole/internal/config"
)

// Issuer signs the access tokens the console decodes: the identity claims
// ride under the WS-* schema URIs, IsActive as the string "True"/"False".
type Issuer struct {
	cfg    *config.JWTConfig
	logger *zap.Logger
	now    func() time.Time
}

func NewIssuer(cfg *config.JWTConfig, logger *zap.Logger) *Issuer {
	return &Issuer{cfg: cfg, logger: logger, now: time.Now}
}

func (i *Issuer) Issue(u *UserRecord) (string, int64, error) {
	issuedAt := i.now().UTC()
	expiresAt := issuedAt.Add(i.cfg.AccessTTL)

	isActive := "False"
	if u.IsActiveUser {
		isActive = "True"
	}

	claims := jwt.MapClaims{
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier": formatID(u.UserID),
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name":           u.NameUser,
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/emailaddress":   u.EmailUser,
		"http://schemas.xmlsoap.org/ws/2005/05/identity/claims/mobilephone":    u.PhoneUser,
		"IsActive":     isActive,
		"Specialities": u.SpecialitiesUser,
		"iss":          i.cfg.Issuer,
		"aud":          i.cfg.Audience,
		"jti":          uuid.NewString(),
		"iat":          issuedAt.Unix(),
		"exp":          expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = i.cfg.KID
	signed, err := token.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		i.logger.Error("failed to sign access token", zap.Error(err))
		return "", 0, err
	}
	return signed, int64(i.cfg.AccessTTL.Seconds()), nil
}

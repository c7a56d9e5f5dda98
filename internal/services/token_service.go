package services

import (
	"errors"
	"fmt"
	"time"

	"hospverse/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carried by API tokens.
type Claims struct {
	Sid      string `json:"sid"`
	Role     string `json:"role"`
	ClientID string `json:"client_id"`
	Kind     string `json:"kind"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Clock      Clock
}

// Issue signs an access and a refresh token for u bound to session sid.
func (t *TokenIssuer) Issue(u *domain.User, sid string) (access, refresh string, err error) {
	access, err = t.sign(u, sid, TokenAccess, t.AccessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = t.sign(u, sid, TokenRefresh, t.RefreshTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (t *TokenIssuer) sign(u *domain.User, sid, kind string, ttl time.Duration) (string, error) {
	now := t.Clock.now()
	claims := Claims{
		Sid:      sid,
		Role:     u.Role,
		ClientID: u.ClientID,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
}

// Parse verifies signature, expiry and kind.
func (t *TokenIssuer) Parse(raw, kind string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.Secret, nil
	}, jwt.WithIssuer(t.Issuer), jwt.WithTimeFunc(t.Clock.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Kind != kind || c.Sid == "" || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

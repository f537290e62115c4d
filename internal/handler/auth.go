package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims 与后端签发的访问令牌保持一致
type AuthClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var errNoToken = errors.New("not signed in")

// bearerToken 优先读取 Authorization 头，其次是 cookie
func (h *Handler) bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return "", errors.New("malformed authorization header")
		}
		return token, nil
	}

	cookie, err := r.Cookie(h.config.JWT.CookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", errNoToken
		}
		return "", err
	}
	return cookie.Value, nil
}

func (h *Handler) parseToken(token string) (*AuthClaims, error) {
	claims := &AuthClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(h.config.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

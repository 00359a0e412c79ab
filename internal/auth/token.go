package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chorebank/internal/fault"
	"chorebank/internal/model"
)

const tokenTTL = 7 * 24 * time.Hour

// Tokens issues and verifies the signed session tokens handed to clients
// after sign-in. The secret is injected, never read from a global.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret)}
}

// Issue signs a token carrying the user's id, email, and role.
func (t *Tokens) Issue(u model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"role":  string(u.Role),
		"exp":   time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the identity it carries.
func (t *Tokens) Verify(tokenString string) (AuthContext, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return AuthContext{}, fault.New(fault.Unauthorized, "invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AuthContext{}, fault.New(fault.Unauthorized, "invalid or expired token")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return AuthContext{}, fault.New(fault.Unauthorized, "invalid or expired token")
	}

	return AuthContext{UserID: sub, Email: email, Role: model.Role(role)}, nil
}

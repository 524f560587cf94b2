package tokenizer

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/govdash/core"
)

// JWTInspector reads the subject and expiry of a bearer token on the client.
// The client does not hold the issuer key, so the signature is not checked.
type JWTInspector struct {
	parser *jwt.Parser
}

// NewJWTInspector creates a new inspector
func NewJWTInspector() *JWTInspector {
	return &JWTInspector{parser: jwt.NewParser()}
}

// Inspect decodes the registered claims of token
func (i *JWTInspector) Inspect(token string) (*core.TokenInfo, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := i.parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	info := &core.TokenInfo{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

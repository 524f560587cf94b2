package tokenizer

import "github.com/golang-jwt/jwt/v5"

// ChallengeClaims combines standard claims with the nonce the wallet signs
type ChallengeClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}

// AccessClaims are the standard claims of a bearer token
type AccessClaims struct {
	jwt.RegisteredClaims
}

package ports

import "github.com/layer-3/govdash/core"

// TokenInspector reads claims from a bearer token without verifying its signature
type TokenInspector interface {
	Inspect(token string) (*core.TokenInfo, error)
}

// Tokenizer converts between domain objects and signed tokens
type Tokenizer interface {
	ChallengeToToken(challenge *core.Challenge) (string, error)
	TokenToChallenge(token string) (*core.Challenge, error)

	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
}

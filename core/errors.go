package core

import "errors"

// Precondition errors are returned before any network call is made.
var (
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrSignerUnavailable  = errors.New("wallet cannot sign messages")
	ErrMissingAddress     = errors.New("wallet has no public address")
)

// Errors that unwind an authentication attempt.
var (
	ErrChallengeFailed      = errors.New("challenge request failed")
	ErrSignatureRejected    = errors.New("signature request rejected")
	ErrVerifyFailed         = errors.New("signature verification failed")
	ErrSessionSuperseded    = errors.New("authentication superseded by disconnect")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTokenNotFound        = errors.New("token not found")
	ErrStoreOperationFailed = errors.New("store operation failed")
)

// Errors returned by the development governance API.
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrChallengeUsed    = errors.New("challenge already used")
	ErrInvalidAddress   = errors.New("invalid wallet address")
)

package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a terminal JWT.
type AccessTokenPayload struct {
	TerminalID string
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to the terminal UI.
type AccessTokenClaims struct {
	TerminalID string `json:"terminal_id"`
	jwt.RegisteredClaims
}

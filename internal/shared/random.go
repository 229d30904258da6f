package shared

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// VerifierLength is the PKCE code verifier length. RFC 7636 allows 43 to 128.
	VerifierLength = 128
	// StateLength is the length of the opaque OAuth state token.
	StateLength = 16
)

// RandomString returns n characters drawn from [A-Za-z0-9] using crypto/rand.
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: length must be positive", ErrInvalidArgument)
	}

	values := make([]byte, n)
	if _, err := rand.Read(values); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	for i, v := range values {
		values[i] = alphanumeric[int(v)%len(alphanumeric)]
	}
	return string(values), nil
}

// GenerateCodeVerifier returns a fresh PKCE code verifier.
func GenerateCodeVerifier() (string, error) {
	return RandomString(VerifierLength)
}

// CodeChallenge derives the S256 code challenge: unpadded base64url of SHA-256(verifier).
func CodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// GenerateState returns an opaque state token for CSRF protection on the redirect.
func GenerateState() (string, error) {
	return RandomString(StateLength)
}

package documents

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// tokenLength is the number of hex characters a public-link token
// carries.
const tokenLength = 16

// PublicToken derives the shareable token that authorizes anonymous
// access to one student's public documents.
func PublicToken(admissionNumber, secret string) string {
	sum := sha256.Sum256([]byte(admissionNumber + "-" + secret))
	return hex.EncodeToString(sum[:])[:tokenLength]
}

// VerifyToken reports whether token grants access to admissionNumber.
// The comparison is constant-time.
func VerifyToken(admissionNumber, secret, token string) bool {
	expected := PublicToken(admissionNumber, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}

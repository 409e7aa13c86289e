package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a GitHub X-Hub-Signature-256 header value
// against an HMAC-SHA256 of the exact raw request body. It returns
// false for a missing or malformed header and compares in constant
// time; it never returns an error.
func VerifySignature(body []byte, signatureHeader, secret string) bool {
	if !strings.HasPrefix(signatureHeader, signaturePrefix) {
		return false
	}

	sig, err := hex.DecodeString(signatureHeader[len(signaturePrefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(sig, mac.Sum(nil))
}

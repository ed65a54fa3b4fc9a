package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignHMAC returns hex(HMAC-SHA256(secret, body)).
func SignHMAC(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC checks a hex signature produced by SignHMAC, case-insensitively.
func VerifyHMAC(secret string, body []byte, signature string) bool {
	got, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(signature)))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(SignHMAC(secret, body))
	return hmac.Equal(want, got)
}

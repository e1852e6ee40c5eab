package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// verifySignature checks an HMAC-SHA256 hex signature over the raw webhook
// payload. All three providers sign callbacks this way; only the shared
// secret differs.
func verifySignature(secret string, payload []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	expected := hex.EncodeToString(h.Sum(nil))
	return strings.EqualFold(expected, signature)
}

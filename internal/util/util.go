package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func HMACSHA256Hex(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares sig against the expected HMAC in constant time.
func VerifyHMAC(secret, msg, sig string) bool {
	if sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(HMACSHA256Hex(secret, msg)))
}

// RequestSignature signs the parameters of one store request.
func RequestSignature(secret, action, sheet, id, data string) string {
	return HMACSHA256Hex(secret, requestMessage(action, sheet, id, data))
}

func VerifyRequestSignature(secret, sig, action, sheet, id, data string) bool {
	return VerifyHMAC(secret, requestMessage(action, sheet, id, data), sig)
}

func requestMessage(action, sheet, id, data string) string {
	return strings.Join([]string{action, sheet, id, data}, "\n")
}

// SplitTrimmed splits s on sep and drops blank parts.
func SplitTrimmed(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

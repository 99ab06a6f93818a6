package mercadopago

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ParseSignatureHeader splits an x-signature value "ts=...,v1=..." into its
// timestamp and hex digest. ok is false when either part is missing.
func ParseSignatureHeader(header string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	return ts, v1, ts != "" && v1 != ""
}

// Manifest builds the canonical string MercadoPago signs.
func Manifest(dataID, requestID, ts string) string {
	return "id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";"
}

// Sign returns the hex HMAC-SHA256 of manifest under secret.
func Sign(manifest, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks an x-signature header against the notification's
// request and data ids. Any missing input yields false.
func VerifySignature(signatureHeader, requestID, dataID, secret string) bool {
	if secret == "" || requestID == "" || dataID == "" {
		return false
	}
	ts, v1, ok := ParseSignatureHeader(signatureHeader)
	if !ok {
		return false
	}
	got, err := hex.DecodeString(v1)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hmac.Equal(mac.Sum(nil), got)
}

package reporting

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Signature headers set on signed reports.
const (
	HeaderSignature = "X-Domguard-Signature"
	HeaderTimestamp = "X-Domguard-Timestamp"
)

// Signer computes HMAC-SHA256 signatures over report payloads.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns "sha256=<hex>" over "<unix-timestamp>.<payload>".
func (s *Signer) Sign(payload []byte, timestamp time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%d.", timestamp.Unix())
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign and rejects timestamps outside
// tolerance of now.
func (s *Signer) Verify(payload []byte, signature string, timestamp int64, now time.Time, tolerance time.Duration) bool {
	skew := now.Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(tolerance.Seconds()) {
		return false
	}
	expected := s.Sign(payload, time.Unix(timestamp, 0))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Headers returns the signature headers for payload.
func (s *Signer) Headers(payload []byte, timestamp time.Time) map[string]string {
	return map[string]string{
		HeaderSignature: s.Sign(payload, timestamp),
		HeaderTimestamp: strconv.FormatInt(timestamp.Unix(), 10),
	}
}

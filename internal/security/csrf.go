package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// CSRFFormField is the hidden form field carrying the token
const CSRFFormField = "csrf_token"

var ErrNoSession = errors.New("session ID is required")

// CSRFGenerator issues HMAC-SHA256 tokens bound to a session id and an issue time.
// Tokens are "<unix seconds>.<hex mac>" and need no server-side state.
type CSRFGenerator struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCSRFGenerator creates a generator; tokens older than ttl are rejected
func NewCSRFGenerator(secret string, ttl time.Duration) *CSRFGenerator {
	return &CSRFGenerator{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (g *CSRFGenerator) sign(sessionID string, issued int64) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(sessionID))
	mac.Write([]byte{0})
	mac.Write([]byte(strconv.FormatInt(issued, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateToken returns a fresh token for the session
func (g *CSRFGenerator) GenerateToken(sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}
	issued := g.now().Unix()
	return strconv.FormatInt(issued, 10) + "." + g.sign(sessionID, issued), nil
}

// ValidateToken reports whether token was issued for sessionID and has not expired
func (g *CSRFGenerator) ValidateToken(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	ts, mac, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	age := g.now().Sub(time.Unix(issued, 0))
	if age < -time.Minute || (g.ttl > 0 && age > g.ttl) {
		return false
	}
	return hmac.Equal([]byte(g.sign(sessionID, issued)), []byte(mac))
}

package mapred

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// Session identifies the caller a job runs on behalf of. Result
// downloads are authenticated with a token minted from the session.
type Session struct {
	UserID    string
	Namespace string
}

// Auth encodes sessions into API tokens accepted by result-serving
// nodes.
type Auth interface {
	EncodeAuthToken(session Session) (string, error)
}

// HMACAuth mints tokens of the form base64(payload).base64(mac), where
// the mac is an HMAC-SHA256 over the payload with a shared secret.
type HMACAuth struct {
	secret []byte
}

// NewHMACAuth creates an HMACAuth with the given shared secret.
func NewHMACAuth(secret []byte) *HMACAuth {
	return &HMACAuth{secret: secret}
}

// EncodeAuthToken encodes session into a signed token.
func (a *HMACAuth) EncodeAuthToken(session Session) (string, error) {
	payload := session.Namespace + "/" + session.UserID

	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(payload))

	return base64.RawURLEncoding.EncodeToString([]byte(payload)) +
		"." +
		base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifyAuthToken checks token's signature and returns the session it
// encodes.
func (a *HMACAuth) VerifyAuthToken(token string) (Session, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return Session{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Session{}, false
	}
	mac, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Session{}, false
	}

	want := hmac.New(sha256.New, a.secret)
	want.Write(payload)
	if !hmac.Equal(mac, want.Sum(nil)) {
		return Session{}, false
	}

	fields := strings.SplitN(string(payload), "/", 2)
	if len(fields) != 2 {
		return Session{}, false
	}

	return Session{Namespace: fields[0], UserID: fields[1]}, true
}

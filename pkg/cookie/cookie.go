package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

var (
	ErrNoSecret  = errors.New("cookie: secret required")
	ErrBadSecret = errors.New("cookie: secret must be 32+ bytes")
	ErrBadSig    = errors.New("cookie: invalid signature")
)

// Signer signs cookie values with HMAC-SHA256 so clients cannot forge them.
// Signed values have the form base64(value).base64(mac).
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer. The secret must be at least
// MinSecretLength bytes.
func NewSigner(secret string) (*Signer, error) {
	switch {
	case secret == "":
		return nil, ErrNoSecret
	case len(secret) < MinSecretLength:
		return nil, ErrBadSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign returns the signed form of value.
func (s *Signer) Sign(value string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(value)) +
		"." + base64.RawURLEncoding.EncodeToString(s.mac([]byte(value)))
}

// Verify checks a signed value and returns the original.
func (s *Signer) Verify(signed string) (string, error) {
	encValue, encSig, ok := strings.Cut(signed, ".")
	if !ok {
		return "", ErrBadSig
	}
	value, err := base64.RawURLEncoding.DecodeString(encValue)
	if err != nil {
		return "", ErrBadSig
	}
	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return "", ErrBadSig
	}
	if !hmac.Equal(sig, s.mac(value)) {
		return "", ErrBadSig
	}
	return string(value), nil
}

func (s *Signer) mac(value []byte) []byte {
	m := hmac.New(sha256.New, s.secret)
	m.Write(value)
	return m.Sum(nil)
}

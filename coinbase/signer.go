package coinbase

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLifetime is the validity Coinbase grants CDP tokens.
const tokenLifetime = 2 * time.Minute

// Signer builds the short lived bearer tokens of Coinbase CDP API keys.
type Signer struct {
	keyName string
	key     *ecdsa.PrivateKey
	now     func() time.Time
}

// NewSigner creates a Signer from a key name ("organizations/.../apiKeys/...")
// and its PEM encoded EC private key.
func NewSigner(keyName string, pemKey []byte) (*Signer, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM(pemKey)
	if err != nil {
		return nil, fmt.Errorf("invalid Coinbase API secret: %w", err)
	}
	return &Signer{keyName: keyName, key: key, now: time.Now}, nil
}

// LoadSigner reads the PEM key from a file.
func LoadSigner(keyName, pemFile string) (*Signer, error) {
	pemKey, err := os.ReadFile(pemFile)
	if err != nil {
		return nil, err
	}
	return NewSigner(keyName, pemKey)
}

// Token signs a token valid for one request: method and host+path are bound
// into the "uri" claim.
func (s *Signer) Token(method, host, path string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": s.keyName,
		"iss": "cdp",
		"nbf": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
		"uri": fmt.Sprintf("%s %s%s", method, host, path),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	token.Header["kid"] = s.keyName
	token.Header["nonce"] = hex.EncodeToString(nonce)
	return token.SignedString(s.key)
}

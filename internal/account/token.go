package account

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"papertrade/types"
)

// Token is a bearer credential for one user.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Tokens issues and checks stateless bearer tokens. A token is
// "<user id>.<expiry unix>.<mac>", where mac is a keyed BLAKE2b-256 of the
// first two fields, base64url encoded.
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewTokens returns a token issuer keyed with key, which must be 16 to 64
// bytes long.
func NewTokens(key []byte, ttl time.Duration) (*Tokens, error) {
	if len(key) < 16 || len(key) > blake2b.Size {
		return nil, fmt.Errorf("token key must be 16 to %d bytes, got %d", blake2b.Size, len(key))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %v", ttl)
	}
	return &Tokens{key: append([]byte(nil), key...), ttl: ttl, now: time.Now}, nil
}

// RandomTokens returns an issuer with a fresh random key.
func RandomTokens(ttl time.Duration) (*Tokens, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate token key: %w", err)
	}
	return NewTokens(key, ttl)
}

func (t *Tokens) Issue(userID int64) Token {
	exp := t.now().Add(t.ttl).UTC().Truncate(time.Second)
	payload := strconv.FormatInt(userID, 10) + "." + strconv.FormatInt(exp.Unix(), 10)
	return Token{
		Value:     payload + "." + base64.RawURLEncoding.EncodeToString(t.mac(payload)),
		ExpiresAt: exp,
	}
}

// Verify returns the user id a token was issued to. Malformed, forged and
// expired tokens all fail with types.ErrUnauthenticated.
func (t *Tokens) Verify(token string) (int64, error) {
	i := strings.LastIndexByte(token, '.')
	if i < 0 {
		return 0, fmt.Errorf("malformed token: %w", types.ErrUnauthenticated)
	}
	payload, sig := token[:i], token[i+1:]
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || subtle.ConstantTimeCompare(got, t.mac(payload)) != 1 {
		return 0, fmt.Errorf("bad token signature: %w", types.ErrUnauthenticated)
	}

	rawID, rawExp, ok := strings.Cut(payload, ".")
	if !ok {
		return 0, fmt.Errorf("malformed token: %w", types.ErrUnauthenticated)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed token: %w", types.ErrUnauthenticated)
	}
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed token: %w", types.ErrUnauthenticated)
	}
	if !t.now().Before(time.Unix(exp, 0)) {
		return 0, fmt.Errorf("token expired: %w", types.ErrUnauthenticated)
	}
	return id, nil
}

func (t *Tokens) mac(payload string) []byte {
	// New256 only fails for keys over 64 bytes, which NewTokens rejects.
	h, _ := blake2b.New256(t.key)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

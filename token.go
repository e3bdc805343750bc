package datacache

import (
	_ "crypto/sha256" // register sha256 for go-digest

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// Token is the storage token of a lookup key:
// the hex-encoded sha2-256 hash of the key's bytes.
// It is used as the name of the entry inside the cache root.
type Token string

// Digest computes the Token of a lookup key.
// The key is hashed exactly as given:
// there is no normalization,
// so two strings naming the same resource are two different keys.
func Digest(key string) Token {
	return Token(digest.SHA256.FromString(key).Encoded())
}

// EmptyToken is the Token of the empty key.
var EmptyToken = Digest("")

func (t Token) String() string {
	return string(t)
}

// Valid tells whether t is a well-formed token.
func (t Token) Valid() bool {
	return digest.SHA256.Validate(string(t)) == nil
}

// ParseToken checks that s is a well-formed token and returns it.
func ParseToken(s string) (Token, error) {
	if err := digest.SHA256.Validate(s); err != nil {
		return "", errors.Wrapf(err, "parsing token %q", s)
	}
	return Token(s), nil
}

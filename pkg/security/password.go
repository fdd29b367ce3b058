// Package security hashes and checks customer passwords with Argon2id.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"

	"github.com/ironmonger/hardware-backend/pkg/config"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
)

var (
	ErrInvalidHash  = errors.New("invalid argon2id hash")
	ErrWeakPassword = errors.New("password must be 6-128 characters and not only whitespace")
)

var b64 = base64.RawStdEncoding

// argonHash is one decoded PHC string: $argon2id$v=19$m=..,t=..,p=..$salt$key.
type argonHash struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h argonHash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func (h argonHash) derive(password string) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
}

// HashPassword salts and hashes password using the cost in cfg. Out of range
// cost settings are clamped rather than rejected.
func HashPassword(password string, cfg config.PasswordConfig) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}

	h := argonHash{
		memory:  uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		time:    uint32(clamp(cfg.ArgonTime, 1, 10)),
		threads: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		salt:    make([]byte, clamp(cfg.ArgonSaltLen, 8, 64)),
		key:     make([]byte, clamp(cfg.ArgonKeyLen, 16, 64)),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

// VerifyPassword re-derives the key with the parameters stored in encoded.
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(password)) == 1, nil
}

// CheckPasswordPolicy enforces the length bounds and rejects all-whitespace
// passwords.
func CheckPasswordPolicy(password string) error {
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return ErrWeakPassword
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsSpace(r) }) < 0 {
		return ErrWeakPassword
	}
	return nil
}

func parseHash(encoded string) (argonHash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return argonHash{}, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonHash{}, ErrInvalidHash
	}

	var h argonHash
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.memory == 0 || h.time == 0 || h.threads == 0 {
		return argonHash{}, ErrInvalidHash
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil {
		return argonHash{}, ErrInvalidHash
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrInvalidHash
	}
	return h, nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

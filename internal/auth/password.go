package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/armazem-neca/armazem-api/internal/platform/httpx"
)

// MinPasswordLength is the minimum accepted password size.
const MinPasswordLength = 8

// Argon2idParams controls hashing cost. Memory is in KiB as required
// by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher hashes and verifies passwords with Argon2id.
type Hasher struct {
	params Argon2idParams
}

// NewHasher constructs a Hasher with interactive-login cost defaults.
func NewHasher() *Hasher {
	return &Hasher{params: Argon2idParams{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}}
}

// Hash derives an encoded Argon2id hash with a fresh random salt.
// Output format: $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<key>.
func (h *Hasher) Hash(password string) (string, error) {
	if len([]rune(password)) < MinPasswordLength {
		return "", httpx.ErrWeakPassword
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key))
	return encoded, nil
}

// Verify reports whether password matches the encoded hash. Malformed
// or foreign hashes count as a mismatch, never an error: a corrupt
// stored hash must behave exactly like a wrong password.
func (h *Hasher) Verify(password, encodedHash string) bool {
	params, salt, expected, ok := decodeHash(encodedHash)
	if !ok {
		return false
	}
	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}

func decodeHash(encoded string) (Argon2idParams, []byte, []byte, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2idParams{}, nil, nil, false
	}

	var params Argon2idParams
	for _, field := range strings.Split(parts[3], ",") {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return Argon2idParams{}, nil, nil, false
		}
		n, err := strconv.ParseUint(kv[1], 10, 32)
		if err != nil {
			return Argon2idParams{}, nil, nil, false
		}
		switch kv[0] {
		case "m":
			params.MemoryKiB = uint32(n)
		case "t":
			params.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return Argon2idParams{}, nil, nil, false
			}
			params.Parallelism = uint8(n)
		default:
			return Argon2idParams{}, nil, nil, false
		}
	}
	if params.MemoryKiB == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return Argon2idParams{}, nil, nil, false
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil || len(salt) < 8 {
		return Argon2idParams{}, nil, nil, false
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) < 16 {
		return Argon2idParams{}, nil, nil, false
	}
	return params, salt, key, true
}

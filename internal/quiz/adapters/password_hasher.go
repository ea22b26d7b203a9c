package adapters

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"securequiz/internal/quiz/ports"
)

// Argon2idParams tunes password hashing.
type Argon2idParams struct {
	Time       uint32
	Memory     uint32
	Threads    uint8
	KeyLength  uint32
	SaltLength uint32
}

// DefaultArgon2idParams is used for newly seeded admin passwords.
var DefaultArgon2idParams = Argon2idParams{
	Time:       1,
	Memory:     64 * 1024,
	Threads:    4,
	KeyLength:  32,
	SaltLength: 16,
}

// PasswordHasher hashes with Argon2id and also verifies legacy bcrypt hashes
// produced by the previous seed tooling.
type PasswordHasher struct {
	params Argon2idParams
}

var _ ports.PasswordHasher = (*PasswordHasher)(nil)

// NewPasswordHasher returns a hasher using params, falling back to defaults for zero fields.
func NewPasswordHasher(params Argon2idParams) *PasswordHasher {
	if params.Time == 0 {
		params.Time = DefaultArgon2idParams.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultArgon2idParams.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultArgon2idParams.Threads
	}
	if params.KeyLength == 0 {
		params.KeyLength = DefaultArgon2idParams.KeyLength
	}
	if params.SaltLength == 0 {
		params.SaltLength = DefaultArgon2idParams.SaltLength
	}
	return &PasswordHasher{params: params}
}

// Hash encodes password as argon2id$time$memory$threads$salt$hash.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	salt := make([]byte, int(h.params.SaltLength))
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)
	return fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		h.params.Time,
		h.params.Memory,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Malformed hashes return an error.
func (h *PasswordHasher) Verify(password, encoded string) (bool, error) {
	if isBcrypt(encoded) {
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("verify bcrypt hash: %w", err)
		}
		return true, nil
	}

	parsed, err := parseArgon2id(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.threads, uint32(len(parsed.key)))
	return subtle.ConstantTimeCompare(computed, parsed.key) == 1, nil
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

type argon2idHash struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (argon2idHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return argon2idHash{}, errors.New("invalid password hash format")
	}
	var nums [3]uint64
	for i := range nums {
		n, err := strconv.ParseUint(parts[i+1], 10, 32)
		if err != nil {
			return argon2idHash{}, fmt.Errorf("invalid hash parameter %q: %w", parts[i+1], err)
		}
		nums[i] = n
	}
	if nums[2] == 0 || nums[2] > 255 {
		return argon2idHash{}, errors.New("invalid thread count: must be between 1 and 255")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return argon2idHash{}, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return argon2idHash{}, fmt.Errorf("decode hash: %w", err)
	}
	return argon2idHash{
		time:    uint32(nums[0]),
		memory:  uint32(nums[1]),
		threads: uint8(nums[2]),
		salt:    salt,
		key:     key,
	}, nil
}

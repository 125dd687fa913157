package util

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"
)

const MinPasswordLength = 8

// argon2id cost for account passwords and emailed codes alike.
var kdf = struct {
	time, memory uint32
	threads      uint8
	keyLen       uint32
	saltLen      int
}{time: 1, memory: 64 * 1024, threads: 4, keyLen: 32, saltLen: 16}

var (
	errEmptySecret = errors.New("secret cannot be empty")
	errEmptySalt   = errors.New("salt cannot be empty")
)

// ValidatePassword enforces the cashier/admin password policy and names every
// missing character class in the returned error.
func ValidatePassword(password string) error {
	if n := len([]rune(password)); n < MinPasswordLength {
		return fmt.Errorf("password has %d characters, at least %d required", n, MinPasswordLength)
	}

	classes := map[string]bool{}
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes["uppercase"] = true
		case unicode.IsLower(r):
			classes["lowercase"] = true
		case unicode.IsDigit(r):
			classes["digit"] = true
		case unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsSpace(r):
			classes["special"] = true
		}
	}
	var missing []string
	for _, class := range []string{"uppercase", "lowercase", "digit", "special"} {
		if !classes[class] {
			missing = append(missing, class)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("password is missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

func GenerateSalt() ([]byte, error) {
	salt := make([]byte, kdf.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return salt, nil
}

func HashPassword(secret string, salt []byte) ([]byte, error) {
	switch {
	case secret == "":
		return nil, errEmptySecret
	case len(salt) == 0:
		return nil, errEmptySalt
	}
	return argon2.IDKey([]byte(secret), salt, kdf.time, kdf.memory, kdf.threads, kdf.keyLen), nil
}

// DerivePassword salts and hashes a new password.
func DerivePassword(password string) (hash, salt []byte, err error) {
	if salt, err = GenerateSalt(); err != nil {
		return nil, nil, err
	}
	if hash, err = HashPassword(password, salt); err != nil {
		return nil, nil, err
	}
	return hash, salt, nil
}

// HashCode hashes an emailed one-time code so a database read does not reveal
// live codes.
func HashCode(code string) (hash, salt []byte, err error) {
	return DerivePassword(code)
}

// VerifyPassword checks secret against a stored salt and hash in constant time.
func VerifyPassword(secret string, salt, expectedHash []byte) bool {
	if len(expectedHash) == 0 {
		return false
	}
	candidate, err := HashPassword(secret, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(candidate, expectedHash) == 1
}

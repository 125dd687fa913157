package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveAndVerifyPassword(t *testing.T) {
	hash, salt, err := DerivePassword("s3cret-Pass")
	if err != nil {
		t.Fatalf("DerivePassword returned error: %v", err)
	}
	if len(hash) == 0 || len(salt) == 0 {
		t.Fatalf("expected hash and salt to be populated")
	}
	if !VerifyPassword("s3cret-Pass", salt, hash) {
		t.Fatalf("expected password verification to succeed")
	}
	if VerifyPassword("wrong-pass", salt, hash) {
		t.Fatalf("expected password verification to fail for wrong password")
	}
}

func TestHashPasswordEmptyInput(t *testing.T) {
	if _, err := HashPassword("", []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error when password empty")
	}
	if _, err := HashPassword("secret", nil); err == nil {
		t.Fatalf("expected error when salt empty")
	}
}

func TestValidatePassword(t *testing.T) {
	cases := map[string]bool{
		"Cashier#1":  true,
		"Ab1!abcd":   true,
		"Ab1!abc":    false,
		"abcdefg1!":  false,
		"ABCDEFG1!":  false,
		"Abcdefgh!":  false,
		"Abcdefgh1":  false,
		"Pass word1": true,
	}
	for pw, ok := range cases {
		err := ValidatePassword(pw)
		if ok {
			assert.NoError(t, err, pw)
		} else {
			assert.Error(t, err, pw)
		}
	}
}

func TestHashCodeVerifies(t *testing.T) {
	hash, salt, err := HashCode("482913")
	assert.NoError(t, err)
	assert.True(t, VerifyPassword("482913", salt, hash))
	assert.False(t, VerifyPassword("482914", salt, hash))
}

func TestValidatePasswordNamesMissingClasses(t *testing.T) {
	err := ValidatePassword("abcdefgh")
	assert.EqualError(t, err, "password is missing: uppercase, digit, special")

	err = ValidatePassword("Ab1!")
	assert.EqualError(t, err, "password has 4 characters, at least 8 required")
}

package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeBodyRedactsSecrets(t *testing.T) {
	body := []byte(`{"email":"a@b.c","password":"x","newPassword":"y","otp":"123456","messages":[{"otp":"654321","id":"m1"}]}`)
	got, ok := sanitizeBody(body, "application/json").(map[string]any)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, "a@b.c", got["email"])
	assert.Equal(t, redacted, got["password"])
	assert.Equal(t, redacted, got["newPassword"])
	assert.Equal(t, redacted, got["otp"])
	nested := got["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, redacted, nested["otp"])
	assert.Equal(t, "m1", nested["id"])
}

func TestSanitizeBodyForm(t *testing.T) {
	got := sanitizeBody([]byte("email=a%40b.c&password=secret"), "application/x-www-form-urlencoded")
	assert.Equal(t, map[string]any{"email": "a@b.c", "password": redacted}, got)
}

func TestSanitizeBodyBinaryAndEmpty(t *testing.T) {
	assert.Nil(t, sanitizeBody(nil, "application/json"))
	assert.Equal(t, "binary", sanitizeBody([]byte{0xff, 0x00, 0x01}, "application/octet-stream"))
}

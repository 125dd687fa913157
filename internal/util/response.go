package util

// Envelope is the JSON body of every non-2xx API response.
type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

// Rejection is an error body carrying a machine-readable reason code. An
// empty reason yields a plain Error body.
func Rejection(message, reason string) Envelope {
	env := Error(message)
	if reason != "" {
		env["reason"] = reason
	}
	return env
}

// WithRequestID tags the body with the OTP request it concerns.
func (e Envelope) WithRequestID(id string) Envelope {
	if id != "" {
		e["requestId"] = id
	}
	return e
}

package types

type SuccessEnvelope struct {
	Data    any      `json:"data"`
	Notices []Notice `json:"notices,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error   APIError `json:"error"`
	Data    any      `json:"data,omitempty"`
	Notices []Notice `json:"notices,omitempty"`
}

// Notice is a user-facing message, the server-side equivalent of a toast.
type Notice struct {
	Level   string `json:"level"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

package api

import "time"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// SessionResponse is returned when a planning session is created.
type SessionResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// ShareLinkResponse carries a signed share link.
type ShareLinkResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Response is the error envelope written by ErrorResponse.
type Response struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

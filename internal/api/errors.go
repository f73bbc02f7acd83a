package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrNoRefreshToken indicates a refresh was required but no
	// refresh token is held.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrRefreshFailed indicates the refresh endpoint rejected the
	// refresh token. This is the terminal path leading to forced
	// logout.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrAuthExpired indicates a 401 that could not be recovered by
	// refreshing.
	ErrAuthExpired = errors.New("authentication expired")
)

// QuotaError is the 402 "plan limit reached" response from a creation
// endpoint. Reason is the server-provided message, surfaced to the user
// alongside the pricing page.
type QuotaError struct {
	Reason string
}

func (e *QuotaError) Error() string {
	if e.Reason == "" {
		return "plan limit reached"
	}
	return "plan limit reached: " + e.Reason
}

// APIError is any other non-success response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// errorBody is the server's error envelope. Auth endpoints use
// "message", everything else uses "error".
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// responseError converts a non-success response into the error
// taxonomy. The response body is consumed.
func responseError(resp *http.Response) error {
	body := readErrorBody(resp)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrAuthExpired
	case http.StatusPaymentRequired:
		return &QuotaError{Reason: body}
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: body}
	}
}

func readErrorBody(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	if err != nil {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return ""
	}
	if eb.Error != "" {
		return eb.Error
	}
	return eb.Message
}

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPRevalidator asks the identity service over HTTP. Transport errors and
// any non-200 answer are inconclusive; only an explicit "invalidated"
// status evicts the device.
type HTTPRevalidator struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRevalidator targets the service at baseURL, for example
// "https://api.example.com". Requests time out after ten seconds; replace
// Client to change that.
func NewHTTPRevalidator(baseURL string) *HTTPRevalidator {
	return &HTTPRevalidator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type validateRequest struct {
	IdentityID   string `json:"identity_id"`
	SessionToken string `json:"session_token"`
}

type validateResponse struct {
	Status string `json:"status"`
}

// Revalidate posts the pair to /v1/session/validate and maps the
// answer onto a Status.
func (h *HTTPRevalidator) Revalidate(ctx context.Context, identityID, token string) (Status, error) {
	body, err := json.Marshal(validateRequest{IdentityID: identityID, SessionToken: token})
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/v1/session/validate", bytes.NewReader(body))
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return StatusUnknown, fmt.Errorf("%w: status %d", ErrInconclusive, resp.StatusCode)
	}
	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return StatusUnknown, fmt.Errorf("%w: %v", ErrInconclusive, err)
	}
	switch Status(out.Status) {
	case StatusValid:
		return StatusValid, nil
	case StatusInvalidated:
		return StatusInvalidated, nil
	}
	return StatusUnknown, fmt.Errorf("%w: unexpected status %q", ErrInconclusive, out.Status)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	User struct {
		ID       string `json:"id"`
		Phone    string `json:"phone"`
		Role     string `json:"role"`
		IsDriver bool   `json:"is_driver"`
	} `json:"user"`
	Access struct {
		Token string `json:"token"`
	} `json:"access"`
	SessionToken string `json:"session_token"`
	Error        string `json:"error"`
}

// Login signs in and returns the snapshot the client should persist.
func (h *HTTPRevalidator) Login(ctx context.Context, phone, password string) (Snapshot, error) {
	body, err := json.Marshal(loginRequest{Phone: phone, Password: password})
	if err != nil {
		return Snapshot{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return Snapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.Client.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Snapshot{}, fmt.Errorf("decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error == "" {
			out.Error = resp.Status
		}
		return Snapshot{}, fmt.Errorf("login failed: %s", out.Error)
	}
	return Snapshot{
		IdentityID:   out.User.ID,
		Phone:        out.User.Phone,
		Role:         out.User.Role,
		IsDriver:     out.User.IsDriver,
		AccessToken:  out.Access.Token,
		SessionToken: out.SessionToken,
	}, nil
}

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// RelayService implements Service against a JSON-over-HTTP mail relay.
type RelayService struct {
	client  *http.Client
	baseURL string
}

type relayRequest struct {
	Type      string `json:"type"` // invitation, temporary_password, password_reset
	To        string `json:"to"`
	Name      string `json:"name,omitempty"`
	GymName   string `json:"gym_name,omitempty"`
	Code      string `json:"code,omitempty"`
	Token     string `json:"token,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type relayResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// NewRelayService creates a relay-backed mail service.
func NewRelayService(cfg *Config) (*RelayService, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("email relay URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &RelayService{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
	}, nil
}

func (s *RelayService) SendInvitation(ctx context.Context, to, gymName, code string, expiresAt *time.Time) error {
	req := &relayRequest{Type: "invitation", To: to, GymName: gymName, Code: code}
	if expiresAt != nil {
		req.ExpiresAt = expiresAt.Format(time.RFC3339)
	}
	return s.send(ctx, req)
}

func (s *RelayService) SendTemporaryPassword(ctx context.Context, to, name, tempPassword string) error {
	return s.send(ctx, &relayRequest{Type: "temporary_password", To: to, Name: name, Code: tempPassword})
}

func (s *RelayService) SendPasswordReset(ctx context.Context, to, name, token string) error {
	return s.send(ctx, &relayRequest{Type: "password_reset", To: to, Name: name, Token: token})
}

func (s *RelayService) send(ctx context.Context, req *relayRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal email request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call email relay: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("[EMAIL] Error closing relay response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email relay returned status %d: %s", resp.StatusCode, raw)
	}

	var relayResp relayResponse
	if err := json.Unmarshal(raw, &relayResp); err != nil {
		return fmt.Errorf("failed to decode relay response: %w", err)
	}
	if !relayResp.Success {
		return fmt.Errorf("email relay rejected %s mail: %s", req.Type, relayResp.Error)
	}

	return nil
}

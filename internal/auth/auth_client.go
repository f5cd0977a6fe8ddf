package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AuthClient is a client for interacting with the auth_service
type AuthClient struct {
	authServiceURL string
	apiKey         string
	httpClient     *http.Client
	logger         *zerolog.Logger
}

// NewAuthClient creates a new auth client
func NewAuthClient(authServiceURL string, apiKey string, logger *zerolog.Logger) *AuthClient {
	return &AuthClient{
		authServiceURL: strings.TrimSuffix(authServiceURL, "/"),
		apiKey:         apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// GetBrokerCredentials fetches broker credentials from the auth_service.
// requireSession rejects answers without a session token.
func (ac *AuthClient) GetBrokerCredentials(ctx context.Context, broker string, requireSession bool) (*AuthCredentials, error) {
	// service=true marks a service-to-service call
	endpoint := fmt.Sprintf("%s/auth/%s/credentials?service=true", ac.authServiceURL, url.PathEscape(broker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", ac.apiKey)

	ac.logger.Debug().Str("url", endpoint).Msg("requesting broker credentials")

	resp, err := ac.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to auth service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth service response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth service returned error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var credentials AuthCredentials
	if err := json.Unmarshal(body, &credentials); err != nil {
		return nil, fmt.Errorf("failed to parse auth service response: %w", err)
	}

	if credentials.ApiKey == "" || credentials.ApiSecret == "" {
		return nil, fmt.Errorf("received incomplete credentials from auth service")
	}
	if requireSession && credentials.SessionToken == "" {
		return nil, fmt.Errorf("received credentials without session token from auth service")
	}
	if !credentials.IsActive {
		return nil, fmt.Errorf("received inactive credentials from auth service")
	}

	ac.logger.Debug().
		Str("broker", broker).
		Bool("session_token", credentials.SessionToken != "").
		Msg("received broker credentials")

	return &credentials, nil
}

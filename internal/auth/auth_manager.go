package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sabarim/crossover/internal/config"
)

// Manager resolves broker credentials
type Manager struct {
	config     *config.Config
	authClient *AuthClient
	logger     *zerolog.Logger
}

// NewManager creates a new credential manager. The auth service is only
// consulted when its URL is configured.
func NewManager(config *config.Config, logger *zerolog.Logger) *Manager {
	var authClient *AuthClient
	if config.Auth.AuthServiceURL != "" {
		authClient = NewAuthClient(config.Auth.AuthServiceURL, config.Auth.AuthServiceAPIKey, logger)
	}

	return &Manager{
		config:     config,
		authClient: authClient,
		logger:     logger,
	}
}

// Credentials returns the credentials for broker, trying the auth service
// first and falling back to the directly configured key, secret and token.
func (m *Manager) Credentials(ctx context.Context, broker string, requireSession bool) (Credentials, error) {
	if m.authClient != nil {
		creds, err := m.authClient.GetBrokerCredentials(ctx, broker, requireSession)
		if err == nil {
			m.logger.Info().Str("broker", broker).Msg("using credentials from auth service")
			return Credentials{
				APIKey:       creds.ApiKey,
				APISecret:    creds.ApiSecret,
				SessionToken: creds.SessionToken,
			}, nil
		}
		m.logger.Warn().Err(err).Str("broker", broker).Msg("auth service failed, falling back to direct credentials")
	}

	direct := Credentials{
		APIKey:       m.config.Auth.ApiKey,
		APISecret:    m.config.Auth.ApiSecret,
		SessionToken: m.config.Auth.SessionToken,
	}
	if direct.APIKey == "" {
		return Credentials{}, fmt.Errorf("no valid credentials available for %s; set api_key in config or ensure auth_service is working", broker)
	}
	if requiresSecret(broker) && direct.APISecret == "" {
		return Credentials{}, fmt.Errorf("no api secret available for %s; set api_secret in config or ensure auth_service is working", broker)
	}
	if requireSession && direct.SessionToken == "" {
		return Credentials{}, fmt.Errorf("no session token available for %s; set session_token in config or ensure auth_service is working", broker)
	}

	m.logger.Info().Str("broker", broker).Msg("using direct credentials")
	return direct, nil
}

// requiresSecret reports whether broker signs its requests with the API secret
func requiresSecret(broker string) bool {
	return broker == config.BrokerAlpaca
}

package auth

// AuthCredentials represents the credentials received from auth_service
type AuthCredentials struct {
	ID           int    `json:"id"`
	Broker       string `json:"broker"`
	ApiKey       string `json:"api_key"`
	ApiSecret    string `json:"api_secret"`
	SessionToken string `json:"session_token"`
	IsActive     bool   `json:"is_active"`
	AccountID    string `json:"account_id"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Credentials holds what a feed needs to open a broker session
type Credentials struct {
	APIKey       string
	APISecret    string
	SessionToken string
}

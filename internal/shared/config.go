package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Values in the MIXTAPE_* environment take precedence over the file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	MCP         MCPConfig         `toml:"mcp"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify    SpotifyConfig    `toml:"spotify"`
	Insights   InsightsConfig   `toml:"insights"`
	Generative GenerativeConfig `toml:"generative"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"MIXTAPE_SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"MIXTAPE_SPOTIFY_CLIENT_SECRET"`
	RedirectURI  string `toml:"redirect_uri" env:"MIXTAPE_SPOTIFY_REDIRECT_URI"`
	AccessToken  string `toml:"access_token" env:"MIXTAPE_SPOTIFY_ACCESS_TOKEN"`
	RefreshToken string `toml:"refresh_token"`
}

// Map converts the config into the credentials map the Spotify service
// constructor expects.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
		"access_token":  s.AccessToken,
	}
}

// Update stores the tokens from a completed OAuth2 flow.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	return nil
}

// InsightsConfig contains credentials for the listening-insights platform.
type InsightsConfig struct {
	APIKey  string `toml:"api_key" env:"MIXTAPE_INSIGHTS_API_KEY"`
	BaseURL string `toml:"base_url" env:"MIXTAPE_INSIGHTS_BASE_URL"`
}

// GenerativeConfig contains credentials for the generative-language API.
type GenerativeConfig struct {
	APIKey  string `toml:"api_key" env:"MIXTAPE_GENERATIVE_API_KEY"`
	BaseURL string `toml:"base_url" env:"MIXTAPE_GENERATIVE_BASE_URL"`
	Model   string `toml:"model" env:"MIXTAPE_GENERATIVE_MODEL"`
}

// ServerConfig contains HTTP server settings for the tool server.
type ServerConfig struct {
	Host string `toml:"host" env:"MIXTAPE_HOST"`
	Port int    `toml:"port" env:"MIXTAPE_PORT"`
}

// MCPConfig contains settings for the outbound session client.
type MCPConfig struct {
	BaseURL        string `toml:"base_url" env:"MIXTAPE_MCP_BASE_URL"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"MIXTAPE_MCP_TIMEOUT_SECONDS"`
}

// Addr returns the host:port address the tool server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path, then applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := envdecode.Decode(&config); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	if err := envdecode.Decode(&config); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		panic(fmt.Sprintf("failed to decode environment: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to disk as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

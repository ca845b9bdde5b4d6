package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file,
// optionally overlaid with values from a .env file (credentials only).
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Automation  AutomationConfig  `toml:"automation"`
	Matcher     MatcherConfig     `toml:"matcher"`
	Dataset     DatasetConfig     `toml:"dataset"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains platform-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Amazon  AmazonConfig  `toml:"amazon"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	UserID       string `toml:"user_id"`
}

// AmazonConfig contains Amazon Music web login credentials.
type AmazonConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
	BaseURL  string `toml:"base_url"`
}

// YouTubeConfig contains YouTube Music proxy settings.
type YouTubeConfig struct {
	ProxyURL    string `toml:"proxy_url"`
	HeadersPath string `toml:"headers_path"`
	UserID      string `toml:"user_id"`
}

// AutomationConfig contains browser automation tuning knobs.
type AutomationConfig struct {
	Headless     bool `toml:"headless"`
	ShortDelayMS int  `toml:"short_delay_ms"`
	LongDelayMS  int  `toml:"long_delay_ms"`
}

// ShortDelay returns the short settle delay as a [time.Duration].
func (a AutomationConfig) ShortDelay() time.Duration {
	if a.ShortDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(a.ShortDelayMS) * time.Millisecond
}

// LongDelay returns the element-wait timeout as a [time.Duration].
func (a AutomationConfig) LongDelay() time.Duration {
	if a.LongDelayMS <= 0 {
		return 4 * time.Second
	}
	return time.Duration(a.LongDelayMS) * time.Millisecond
}

// MatcherConfig contains song matching settings.
type MatcherConfig struct {
	Confidence float64 `toml:"confidence"`
	MaxResults int     `toml:"max_results"`
	ModelPath  string  `toml:"model_path"`
}

// DatasetConfig contains training data locations.
type DatasetConfig struct {
	RawDir       string `toml:"raw_dir"`
	ProcessedDir string `toml:"processed_dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// A .env file in the working directory, when present, overrides credential
// fields so secrets can be kept out of the config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.overlayEnv()
	return &config, nil
}

// overlayEnv applies credential overrides from a .env file and the process environment.
func (c *Config) overlayEnv() {
	// Missing .env is fine; process env still applies.
	_ = godotenv.Load()

	overrides := map[string]*string{
		"SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT_URI":  &c.Credentials.Spotify.RedirectURI,
		"SPOTIFY_USER_ID":       &c.Credentials.Spotify.UserID,
		"AMAZON_EMAIL":          &c.Credentials.Amazon.Email,
		"AMAZON_PASSWORD":       &c.Credentials.Amazon.Password,
		"YOUTUBE_USER_ID":       &c.Credentials.YouTube.UserID,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}

// Validate fails fast on missing required fields for the requested platforms.
//
// Platforms not involved in a run may be left unconfigured, so callers pass
// only the platform sections they are about to use.
func (c *Config) Validate(sections ...string) error {
	for _, section := range sections {
		switch section {
		case "spotify":
			if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
				return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
			}
			if c.Credentials.Spotify.RedirectURI == "" {
				return fmt.Errorf("%w: spotify redirect_uri is required", ErrMissingCredentials)
			}
		case "amazon":
			if c.Credentials.Amazon.Email == "" || c.Credentials.Amazon.Password == "" {
				return fmt.Errorf("%w: amazon email and password are required", ErrMissingCredentials)
			}
		case "youtube":
			if c.Credentials.YouTube.ProxyURL == "" {
				return fmt.Errorf("%w: youtube proxy_url is required", ErrMissingCredentials)
			}
		default:
			return fmt.Errorf("%w: no config section for %q", ErrInvalidConfig, section)
		}
	}
	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.overlayEnv()
	return &config
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

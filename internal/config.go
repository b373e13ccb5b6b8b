package internal

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/physiodesk/internal/kvstore"
	"github.com/starford/physiodesk/internal/render"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Display DisplayConfig     `yaml:"display"`
	Auth    AuthConfig        `yaml:"auth"`
	CSRF    CSRFConfig        `yaml:"csrf"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.Display.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.CSRF.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig selects the key-value backend. Path is the SQLite database
// file for the sqlite backend and the data directory for the fs backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = kvstore.BackendSQLite
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(kvstore.BackendSQLite, kvstore.BackendFS)),
		validation.Field(&c.Path, validation.Required),
	)
}

// DisplayConfig controls how appointment dates are shown.
type DisplayConfig struct {
	DateLayout string `yaml:"date_layout"`
	TimeZone   string `yaml:"time_zone"`
}

// Validate validates the display configuration.
func (c *DisplayConfig) Validate() error {
	if c.DateLayout == "" {
		c.DateLayout = render.DefaultDateLayout
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.TimeZone, validation.By(func(v interface{}) error {
			zone, _ := v.(string)
			if zone == "" || zone == "Local" {
				return nil
			}
			if _, err := time.LoadLocation(zone); err != nil {
				return errors.New("unknown time zone")
			}
			return nil
		})),
	)
}

// Formatter builds the date formatter described by the configuration.
func (c *DisplayConfig) Formatter() (render.DateFormatter, error) {
	return render.NewDateFormatter(c.DateLayout, c.TimeZone)
}

// AuthConfig holds token authentication for the page and the API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// CSRFConfig protects the page forms. Key is 32 bytes, hex encoded.
// An empty key turns protection off.
type CSRFConfig struct {
	Key    string `yaml:"key"`
	Secure bool   `yaml:"secure"`
}

// Validate validates the CSRF configuration.
func (c *CSRFConfig) Validate() error {
	if c.Key == "" {
		return nil
	}
	if _, err := c.KeyBytes(); err != nil {
		return fmt.Errorf("csrf: %w", err)
	}
	return nil
}

// Enabled reports whether form posts require a CSRF token.
func (c *CSRFConfig) Enabled() bool {
	return c.Key != ""
}

// KeyBytes decodes the authentication key.
func (c *CSRFConfig) KeyBytes() ([]byte, error) {
	key, err := hex.DecodeString(c.Key)
	if err != nil {
		return nil, fmt.Errorf("key is not hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Backend: kvstore.BackendSQLite,
			Path:    "./physiodesk.db",
		},
		Display: DisplayConfig{
			DateLayout: render.DefaultDateLayout,
			TimeZone:   "Local",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

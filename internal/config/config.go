package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override secrets from the file.
const (
	EnvIMAPPassword = "ACTIONFEED_IMAP_PASSWORD"
	EnvPostgresDSN  = "ACTIONFEED_PG_DSN"
)

const (
	DefaultDataDir      = "~/.local/share/actionfeed"
	DefaultMinDelay     = time.Second
	DefaultMaxDelay     = 3 * time.Second
	DefaultFetchTimeout = 45 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultMaxRetries   = 2
	DefaultPollInterval = time.Hour
	DefaultTable        = "events"
	DefaultConcurrency  = 4
)

type Config struct {
	Storage   Storage   `yaml:"storage"`
	RateLimit RateLimit `yaml:"rate_limit"`
	HTTP      HTTP      `yaml:"http"`
	Sources   []Source  `yaml:"sources" validate:"dive"`
	Mailbox   Mailbox   `yaml:"mailbox"`
	Postgres  Postgres  `yaml:"postgres"`
	// Concurrency bounds how many sources scrape at once.
	Concurrency int `yaml:"concurrency" validate:"min=1,max=64"`
}

type Storage struct {
	Dir string `yaml:"dir" validate:"required"`
}

type RateLimit struct {
	MinDelay     time.Duration `yaml:"min_delay" validate:"min=0"`
	MaxDelay     time.Duration `yaml:"max_delay" validate:"min=0,gtefield=MinDelay"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"min=0"`
}

type HTTP struct {
	Timeout           time.Duration `yaml:"timeout" validate:"min=0"`
	UserAgent         string        `yaml:"user_agent"`
	MaxRetries        int           `yaml:"max_retries" validate:"min=0,max=10"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"min=0"`
	Burst             int           `yaml:"burst" validate:"min=0"`
}

// Source enables a registered adapter and optionally overrides its root URL.
type Source struct {
	Name    string `yaml:"name" validate:"required"`
	Enabled *bool  `yaml:"enabled"`
	Root    string `yaml:"root" validate:"omitempty,url"`
}

// IsEnabled reports whether the source should run. Sources are enabled unless
// switched off explicitly.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type Mailbox struct {
	Host        string        `yaml:"host" validate:"omitempty,hostname|ip"`
	Port        int           `yaml:"port" validate:"min=0,max=65535"`
	Folder      string        `yaml:"folder"`
	Username    string        `yaml:"username" validate:"required_with=Host"`
	Password    string        `yaml:"password"`
	Interval    time.Duration `yaml:"interval" validate:"min=0"`
	Search      string        `yaml:"search" validate:"omitempty,oneof=unseen all"`
	MaxMessages int           `yaml:"max_messages" validate:"min=0"`
	// Insecure connects without TLS.
	Insecure bool `yaml:"insecure"`
}

// Configured reports whether a mailbox host was given.
func (m Mailbox) Configured() bool {
	return m.Host != ""
}

type Postgres struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table" validate:"omitempty,max=63"`
}

// Default returns the configuration used when no file is given. Load
// decodes a file on top of it, so keys present in the file win, including
// explicit zero values.
func Default() Config {
	return Config{
		Storage: Storage{Dir: DefaultDataDir},
		RateLimit: RateLimit{
			MinDelay:     DefaultMinDelay,
			MaxDelay:     DefaultMaxDelay,
			FetchTimeout: DefaultFetchTimeout,
		},
		HTTP: HTTP{
			Timeout:    DefaultHTTPTimeout,
			MaxRetries: DefaultMaxRetries,
		},
		Mailbox:     Mailbox{Interval: DefaultPollInterval},
		Postgres:    Postgres{Table: DefaultTable},
		Concurrency: DefaultConcurrency,
	}
}

// Load reads a YAML file, applies environment overrides and validates the
// result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvIMAPPassword); v != "" {
		c.Mailbox.Password = v
	}
	if v := getenv(EnvPostgresDSN); v != "" {
		c.Postgres.DSN = v
	}
}

var validate = validator.New()

// Validate checks field constraints and returns the first failure in a
// readable form.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalid, formatFieldError(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("%w: source %q listed twice", ErrInvalid, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_with":
		return fmt.Sprintf("%s is required when %s is set", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname|ip":
		return fmt.Sprintf("%s must be a hostname or IP address", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

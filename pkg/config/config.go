package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/quizdesk/quizdesk/pkg/model"
)

const (
	DefaultConfigPath = "/etc/quizdesk"
	ConfigFileName    = "quizdesk.yml"
)

// Attribute sources.
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
)

// Route binds a path pattern to a resource class name.
type Route struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Class   string `yaml:"class" json:"class"`
}

// DefaultRoutes is the navigation table of the quiz application.
var DefaultRoutes = []Route{
	{Pattern: "/", Class: "public"},
	{Pattern: "/contact", Class: "public"},
	{Pattern: "/home", Class: "admin-only"},
	{Pattern: "/quizzes", Class: "admin-only"},
	{Pattern: "/analytics", Class: "admin-only"},
	{Pattern: "/quiz/{id}", Class: "public"},
	{Pattern: "/quiz/{id}/attempt", Class: "authenticated-any"},
	{Pattern: "/student", Class: "student-only"},
}

// QuizdeskConfig holds all quizdesk configuration settings
type QuizdeskConfig struct {
	// DatabaseURL is the PostgreSQL connection string for the record store
	DatabaseURL string `yaml:"database_url" json:"database_url"`

	// CachePath is the SQLite file backing the device cache
	CachePath string `yaml:"cache_path" json:"cache_path"`

	// SigningKey is the base64 HMAC key for ephemeral credentials
	SigningKey string `yaml:"signing_key" json:"-"`

	// CredentialTTL is the lifetime of an ephemeral credential in seconds
	CredentialTTL int `yaml:"credential_ttl" json:"credential_ttl"`

	// CallTimeout bounds every provider and store call, in milliseconds
	CallTimeout int `yaml:"call_timeout" json:"call_timeout"`

	// DefaultRole is assigned to new accounts that request no role
	DefaultRole string `yaml:"default_role" json:"default_role"`

	// LandingPath is where denied navigations are redirected
	LandingPath string `yaml:"landing_path" json:"landing_path"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// LoginRateLimit is the sustained login rate per second
	LoginRateLimit float64 `yaml:"login_rate_limit" json:"login_rate_limit"`

	// LoginBurst is the number of logins allowed in a burst
	LoginBurst int `yaml:"login_burst" json:"login_burst"`

	// Routes maps navigation paths to resource classes
	Routes []Route `yaml:"routes" json:"routes"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *QuizdeskConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *QuizdeskConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

func newDefault() *QuizdeskConfig {
	return &QuizdeskConfig{
		CachePath:      "/var/lib/quizdesk/cache.db",
		CredentialTTL:  3600,
		CallTimeout:    5000,
		DefaultRole:    model.DefaultRole.String(),
		LandingPath:    "/",
		LogLevel:       "info",
		LogFormat:      "text",
		LoginRateLimit: 5,
		LoginBurst:     10,
		Routes:         append([]Route(nil), DefaultRoutes...),
		sources:        make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*QuizdeskConfig, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = SourceDefault
	}

	configPath := os.Getenv("QUIZDESK_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig QuizdeskConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	if err := config.applyEnvConfig(); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"database_url", "cache_path", "signing_key", "credential_ttl",
		"call_timeout", "default_role", "landing_path", "log_level",
		"log_format", "login_rate_limit", "login_burst", "routes",
	}
}

// envConfig is the environment layer. Only variables that are set and
// non-empty override the lower layers.
type envConfig struct {
	DatabaseURL    string  `env:"DATABASE_URL"`
	CachePath      string  `env:"QUIZDESK_CACHE_PATH"`
	SigningKey     string  `env:"QUIZDESK_SIGNING_KEY"`
	CredentialTTL  int     `env:"QUIZDESK_CREDENTIAL_TTL"`
	CallTimeout    int     `env:"QUIZDESK_CALL_TIMEOUT"`
	DefaultRole    string  `env:"QUIZDESK_DEFAULT_ROLE"`
	LandingPath    string  `env:"QUIZDESK_LANDING_PATH"`
	LogLevel       string  `env:"QUIZDESK_LOG_LEVEL"`
	LogFormat      string  `env:"QUIZDESK_LOG_FORMAT"`
	LoginRateLimit float64 `env:"QUIZDESK_LOGIN_RATE_LIMIT"`
	LoginBurst     int     `env:"QUIZDESK_LOGIN_BURST"`
}

func (c *QuizdeskConfig) applyFileConfig(file *QuizdeskConfig) {
	set := func(name string) { c.sources[name] = SourceFile }

	if file.DatabaseURL != "" {
		c.DatabaseURL = file.DatabaseURL
		set("database_url")
	}
	if file.CachePath != "" {
		c.CachePath = file.CachePath
		set("cache_path")
	}
	if file.SigningKey != "" {
		c.SigningKey = file.SigningKey
		set("signing_key")
	}
	if file.CredentialTTL != 0 {
		c.CredentialTTL = file.CredentialTTL
		set("credential_ttl")
	}
	if file.CallTimeout != 0 {
		c.CallTimeout = file.CallTimeout
		set("call_timeout")
	}
	if file.DefaultRole != "" {
		c.DefaultRole = file.DefaultRole
		set("default_role")
	}
	if file.LandingPath != "" {
		c.LandingPath = file.LandingPath
		set("landing_path")
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
		set("log_level")
	}
	if file.LogFormat != "" {
		c.LogFormat = file.LogFormat
		set("log_format")
	}
	if file.LoginRateLimit != 0 {
		c.LoginRateLimit = file.LoginRateLimit
		set("login_rate_limit")
	}
	if file.LoginBurst != 0 {
		c.LoginBurst = file.LoginBurst
		set("login_burst")
	}
	if len(file.Routes) > 0 {
		c.Routes = file.Routes
		set("routes")
	}
}

func (c *QuizdeskConfig) applyEnvConfig() error {
	var overlay envConfig
	set := make(map[string]bool)

	err := env.ParseWithOptions(&overlay, env.Options{
		OnSet: func(tag string, value interface{}, isDefault bool) {
			if s, ok := value.(string); ok && s != "" {
				set[tag] = true
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	apply := func(key, name string, assign func()) {
		if set[key] {
			assign()
			c.sources[name] = SourceEnvironment
		}
	}
	apply("DATABASE_URL", "database_url", func() { c.DatabaseURL = overlay.DatabaseURL })
	apply("QUIZDESK_CACHE_PATH", "cache_path", func() { c.CachePath = overlay.CachePath })
	apply("QUIZDESK_SIGNING_KEY", "signing_key", func() { c.SigningKey = overlay.SigningKey })
	apply("QUIZDESK_CREDENTIAL_TTL", "credential_ttl", func() { c.CredentialTTL = overlay.CredentialTTL })
	apply("QUIZDESK_CALL_TIMEOUT", "call_timeout", func() { c.CallTimeout = overlay.CallTimeout })
	apply("QUIZDESK_DEFAULT_ROLE", "default_role", func() { c.DefaultRole = overlay.DefaultRole })
	apply("QUIZDESK_LANDING_PATH", "landing_path", func() { c.LandingPath = overlay.LandingPath })
	apply("QUIZDESK_LOG_LEVEL", "log_level", func() { c.LogLevel = overlay.LogLevel })
	apply("QUIZDESK_LOG_FORMAT", "log_format", func() { c.LogFormat = overlay.LogFormat })
	apply("QUIZDESK_LOGIN_RATE_LIMIT", "login_rate_limit", func() { c.LoginRateLimit = overlay.LoginRateLimit })
	apply("QUIZDESK_LOGIN_BURST", "login_burst", func() { c.LoginBurst = overlay.LoginBurst })

	return nil
}

// ConfigFilePath returns the path to the config file
func (c *QuizdeskConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *QuizdeskConfig) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// CredentialLifetime returns the credential TTL as a duration
func (c *QuizdeskConfig) CredentialLifetime() time.Duration {
	return time.Duration(c.CredentialTTL) * time.Second
}

// CallTimeoutDuration returns the per-call timeout as a duration
func (c *QuizdeskConfig) CallTimeoutDuration() time.Duration {
	return time.Duration(c.CallTimeout) * time.Millisecond
}

// Role returns the parsed default role.
func (c *QuizdeskConfig) Role() model.Role {
	role, err := model.ParseRole(c.DefaultRole)
	if err != nil {
		return model.DefaultRole
	}
	return role
}

// SigningKeyBytes decodes the signing key. An empty key yields nil.
func (c *QuizdeskConfig) SigningKeyBytes() ([]byte, error) {
	if c.SigningKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("signing_key is not valid base64: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("signing_key must be at least 32 bytes, got %d", len(key))
	}
	return key, nil
}

// SlogLevel returns the configured log level.
func (c *QuizdeskConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds a logger writing to w in the configured format. The
// level is read through leveler so it can change after construction.
func (c *QuizdeskConfig) NewLogger(w io.Writer, leveler slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: leveler}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Validate validates the configuration
func (c *QuizdeskConfig) Validate() error {
	if _, err := model.ParseRole(c.DefaultRole); err != nil {
		return fmt.Errorf("invalid default_role: %s", c.DefaultRole)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s", c.LogFormat)
	}

	if !strings.HasPrefix(c.LandingPath, "/") {
		return fmt.Errorf("landing_path must start with /: %s", c.LandingPath)
	}
	if c.CredentialTTL <= 0 {
		return fmt.Errorf("credential_ttl must be positive")
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call_timeout must be positive")
	}
	if c.LoginRateLimit <= 0 || c.LoginBurst <= 0 {
		return fmt.Errorf("login_rate_limit and login_burst must be positive")
	}
	if _, err := c.SigningKeyBytes(); err != nil {
		return err
	}

	for _, r := range c.Routes {
		if !strings.HasPrefix(r.Pattern, "/") {
			return fmt.Errorf("invalid route pattern: %s", r.Pattern)
		}
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *QuizdeskConfig) Attributes() []Attribute {
	signingKey := ""
	if c.SigningKey != "" {
		signingKey = "(set)"
	}

	routes := make([]string, 0, len(c.Routes))
	for _, r := range c.Routes {
		routes = append(routes, r.Pattern+"="+r.Class)
	}

	return []Attribute{
		{Name: "database_url", Value: redactURL(c.DatabaseURL), Source: c.Source("database_url")},
		{Name: "cache_path", Value: c.CachePath, Source: c.Source("cache_path")},
		{Name: "signing_key", Value: signingKey, Source: c.Source("signing_key")},
		{Name: "credential_ttl", Value: strconv.Itoa(c.CredentialTTL), Source: c.Source("credential_ttl")},
		{Name: "call_timeout", Value: strconv.Itoa(c.CallTimeout), Source: c.Source("call_timeout")},
		{Name: "default_role", Value: c.DefaultRole, Source: c.Source("default_role")},
		{Name: "landing_path", Value: c.LandingPath, Source: c.Source("landing_path")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "log_format", Value: c.LogFormat, Source: c.Source("log_format")},
		{Name: "login_rate_limit", Value: strconv.FormatFloat(c.LoginRateLimit, 'g', -1, 64), Source: c.Source("login_rate_limit")},
		{Name: "login_burst", Value: strconv.Itoa(c.LoginBurst), Source: c.Source("login_burst")},
		{Name: "routes", Value: strings.Join(routes, ","), Source: c.Source("routes")},
	}
}

// FormatText returns a text representation of the configuration
func (c *QuizdeskConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-20s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *QuizdeskConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// redactURL hides the password of a connection URL.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	user, _, hasPassword := strings.Cut(userinfo, ":")
	if !hasPassword {
		return raw
	}
	return scheme + "://" + user + ":xxxxx@" + host
}

package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RouteConfig binds one URL path to a fixed message text and sender identity.
type RouteConfig struct {
	Path    string `mapstructure:"path" validate:"required,startswith=/,endswith=/"`
	Message string `mapstructure:"message" validate:"required"`
	Sender  string `mapstructure:"sender" validate:"required"`
}

// Config holds all configuration for the gateway.
// Keys match the environment variable names.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT" validate:"oneof=json text"`

	Port            int           `mapstructure:"PORT" validate:"gt=0,lte=65535"`
	LocalhostOnly   bool          `mapstructure:"LOCALHOSTONLY"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	// Optional default route, all three or none.
	Message     string        `mapstructure:"MESSAGE"`
	Sender      string        `mapstructure:"SENDER"`
	RequestPath string        `mapstructure:"REQUEST_PATH"`
	Routes      []RouteConfig `mapstructure:"ROUTES" validate:"dive"`

	NexmoAPIKey            string        `mapstructure:"NEXMO_API_KEY" validate:"required_unless=DevelopmentMode true"`
	NexmoAPISecret         string        `mapstructure:"NEXMO_API_SECRET" validate:"required_unless=DevelopmentMode true"`
	NexmoDomain            string        `mapstructure:"NEXMO_DOMAIN" validate:"required"`
	NexmoEndpoint          string        `mapstructure:"NEXMO_ENDPOINT" validate:"required"`
	NexmoSSL               bool          `mapstructure:"NEXMO_SSL"`
	NexmoLongVirtualNumber string        `mapstructure:"NEXMO_LONG_VIRTUAL_NUMBER"`
	NexmoDLRURL            string        `mapstructure:"NEXMO_DLR_URL" validate:"omitempty,url"`
	ProviderTimeout        time.Duration `mapstructure:"PROVIDER_TIMEOUT" validate:"gt=0"`
	DevelopmentMode        bool          `mapstructure:"DEVELOPMENT_MODE"`

	LimitAmount  int `mapstructure:"LIMIT_AMOUNT" validate:"gte=0"`
	LimitExpires int `mapstructure:"LIMIT_EXPIRES" validate:"gte=0"` // seconds

	GuessCountry   bool   `mapstructure:"GUESS_COUNTRY"`
	DefaultCountry string `mapstructure:"DEFAULT_COUNTRY" validate:"len=2,uppercase"`
	GeoIPv4Path    string `mapstructure:"GEOIP_V4_PATH"`
	GeoIPv6Path    string `mapstructure:"GEOIP_V6_PATH"`

	RedisHost     string `mapstructure:"REDIS_HOST" validate:"required"`
	RedisPort     int    `mapstructure:"REDIS_PORT" validate:"gt=0,lte=65535"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB" validate:"gte=0"`
}

// Load reads configs/config.defaults.yaml (or the file given with --config),
// then environment variables, then command-line flags.
func Load(serviceName string, args []string) (*Config, error) {
	fs := pflag.NewFlagSet(serviceName, pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a YAML configuration file")
	fs.Int("port", 0, "run on the given port")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("development-mode", false, "do not contact the SMS provider")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("config.defaults")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	for key, flag := range map[string]string{
		"PORT":             "port",
		"LOG_LEVEL":        "log-level",
		"DEVELOPMENT_MODE": "development-mode",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Printf("Base configuration file ('config.defaults.yaml') not found; using defaults and environment variables.")
		} else {
			return nil, fmt.Errorf("reading configuration: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PORT", 8888)
	v.SetDefault("LOCALHOSTONLY", false)
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("MESSAGE", "")
	v.SetDefault("SENDER", "")
	v.SetDefault("REQUEST_PATH", "")
	v.SetDefault("ROUTES", []map[string]string{})

	v.SetDefault("NEXMO_API_KEY", "")
	v.SetDefault("NEXMO_API_SECRET", "")
	v.SetDefault("NEXMO_DOMAIN", "rest.nexmo.com")
	v.SetDefault("NEXMO_ENDPOINT", "sms/json")
	v.SetDefault("NEXMO_SSL", false)
	v.SetDefault("NEXMO_LONG_VIRTUAL_NUMBER", "")
	v.SetDefault("NEXMO_DLR_URL", "")
	v.SetDefault("PROVIDER_TIMEOUT", "20s")
	v.SetDefault("DEVELOPMENT_MODE", false)

	v.SetDefault("LIMIT_AMOUNT", 10)
	v.SetDefault("LIMIT_EXPIRES", 3600)

	v.SetDefault("GUESS_COUNTRY", true)
	v.SetDefault("DEFAULT_COUNTRY", "DE")
	v.SetDefault("GEOIP_V4_PATH", "")
	v.SetDefault("GEOIP_V6_PATH", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

// Paths served by the gateway itself.
var reservedPaths = map[string]struct{}{
	"/validate_number/": {},
	"/health":           {},
	"/metrics":          {},
}

// Validate checks field constraints and the cross-field rules the struct tags can't express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	given := 0
	for _, s := range []string{c.Message, c.Sender, c.RequestPath} {
		if s != "" {
			given++
		}
	}
	if given != 0 && given != 3 {
		return errors.New("invalid configuration: MESSAGE, SENDER and REQUEST_PATH must be given together")
	}
	if c.RequestPath != "" && (!strings.HasPrefix(c.RequestPath, "/") || !strings.HasSuffix(c.RequestPath, "/")) {
		return fmt.Errorf("invalid configuration: REQUEST_PATH %q must start and end with '/'", c.RequestPath)
	}

	seen := make(map[string]struct{}, len(c.Routes))
	for _, r := range c.MessageRoutes() {
		if _, dup := seen[r.Path]; dup {
			return fmt.Errorf("invalid configuration: route %q configured twice", r.Path)
		}
		if _, reserved := reservedPaths[r.Path]; reserved {
			return fmt.Errorf("invalid configuration: route %q is reserved", r.Path)
		}
		seen[r.Path] = struct{}{}
	}

	if c.LimitAmount > 0 && c.LimitExpires <= 0 {
		return errors.New("invalid configuration: LIMIT_EXPIRES must be positive when LIMIT_AMOUNT is set")
	}
	return nil
}

// MessageRoutes returns the route table plus the default route, which is only
// added when its path is not already in the table.
func (c *Config) MessageRoutes() []RouteConfig {
	routes := make([]RouteConfig, 0, len(c.Routes)+1)
	routes = append(routes, c.Routes...)
	if c.RequestPath == "" {
		return routes
	}
	for _, r := range c.Routes {
		if r.Path == c.RequestPath {
			return routes
		}
	}
	return append(routes, RouteConfig{Path: c.RequestPath, Message: c.Message, Sender: c.Sender})
}

// LimitWindow is the rate limit window as a duration.
func (c *Config) LimitWindow() time.Duration {
	return time.Duration(c.LimitExpires) * time.Second
}

// RedisAddr returns host:port of the counter store.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	if c.LocalhostOnly {
		return fmt.Sprintf("127.0.0.1:%d", c.Port)
	}
	return fmt.Sprintf(":%d", c.Port)
}

// LogValue masks credentials when the configuration is logged.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.Bool("localhost_only", c.LocalhostOnly),
		slog.Int("routes", len(c.MessageRoutes())),
		slog.String("nexmo_api_key", c.NexmoAPIKey),
		slog.String("nexmo_api_secret", mask(c.NexmoAPISecret)),
		slog.String("nexmo_domain", c.NexmoDomain),
		slog.String("nexmo_endpoint", c.NexmoEndpoint),
		slog.Bool("nexmo_ssl", c.NexmoSSL),
		slog.String("nexmo_long_virtual_number", c.NexmoLongVirtualNumber),
		slog.String("nexmo_dlr_url", c.NexmoDLRURL),
		slog.Bool("development_mode", c.DevelopmentMode),
		slog.Int("limit_amount", c.LimitAmount),
		slog.Int("limit_expires", c.LimitExpires),
		slog.Bool("guess_country", c.GuessCountry),
		slog.String("default_country", c.DefaultCountry),
		slog.String("redis_addr", c.RedisAddr()),
		slog.String("redis_password", mask(c.RedisPassword)),
		slog.Int("redis_db", c.RedisDB),
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

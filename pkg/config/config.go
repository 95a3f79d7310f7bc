package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"osmandlink/pkg/compose"
	"osmandlink/pkg/link"
	"osmandlink/pkg/trigger"
)

// Config holds the application configuration. It is loaded once at startup
// and treated as read-only afterwards.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Hotkey    trigger.Hotkey  `yaml:"hotkey"`
	Link      LinkConfig      `yaml:"link"`
	Geocoder  GeocoderConfig  `yaml:"geocoder"`
	Append    AppendConfig    `yaml:"append"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
}

// LinkConfig holds pin link settings.
type LinkConfig struct {
	Style    link.Style `yaml:"style"`    // "map", "go"
	Host     string     `yaml:"host"`     // e.g. "osmand.net"
	Zoom     int        `yaml:"zoom"`     // 15=city, 17=street, 18-19=building
	Decimals int        `yaml:"decimals"` // coordinate precision in the URL
}

// GeocoderConfig holds settings for the search endpoint.
type GeocoderConfig struct {
	Endpoint     string   `yaml:"endpoint"`
	StatusURL    string   `yaml:"status_url"`
	Limit        int      `yaml:"limit"`         // max candidates offered in the picker
	CountryCodes string   `yaml:"country_codes"` // e.g. "us,nz,gb"
	Locale       string   `yaml:"locale"`        // Accept-Language; empty derives from LANG
	UserAgent    string   `yaml:"user_agent"`
	Transport    string   `yaml:"transport"` // "auto", "queued", "direct"
	Timeout      Duration `yaml:"timeout"`   // 0 disables
}

// AppendConfig holds composition settings for the three triggers.
type AppendConfig struct {
	Hotkey             compose.Policy `yaml:"hotkey"`
	Left               compose.Policy `yaml:"left"`
	Right              compose.Policy `yaml:"right"`
	UseGeocoderAddress bool           `yaml:"use_geocoder_address"`
	AddressLabel       string         `yaml:"address_label"`
	LinkLabel          string         `yaml:"link_label"`
	NewlineReplacement string         `yaml:"newline_replacement"`
}

// Labels returns the line prefixes for compose.
func (a AppendConfig) Labels() compose.Labels {
	return compose.Labels{Address: a.AddressLabel, Link: a.LinkLabel}
}

// ClipboardConfig holds clipboard behaviour.
type ClipboardConfig struct {
	KeepOriginal bool `yaml:"keep_original"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Trace    bool        `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// ServerConfig holds bridge server settings.
type ServerConfig struct {
	Address       string   `yaml:"address"`
	ShutdownGrace Duration `yaml:"shutdown_grace"`
}

// Builder returns the link builder described by the link settings.
func (c *Config) Builder() link.Builder {
	return link.Builder{
		Host:     c.Link.Host,
		Style:    c.Link.Style,
		Zoom:     c.Link.Zoom,
		Decimals: c.Link.Decimals,
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Debug:  true,
		Hotkey: trigger.Hotkey{Alt: true, Key: "o"},
		Link: LinkConfig{
			Style:    link.StyleMap,
			Host:     link.DefaultHost,
			Zoom:     17,
			Decimals: 6,
		},
		Geocoder: GeocoderConfig{
			Endpoint:  "https://nominatim.openstreetmap.org/search",
			StatusURL: "https://nominatim.openstreetmap.org/status",
			Limit:     5,
			Transport: "auto",
		},
		Append: AppendConfig{
			Hotkey:             compose.PolicyLink,
			Left:               compose.PolicyNone,
			Right:              compose.PolicyAddressAndLink,
			UseGeocoderAddress: true,
			NewlineReplacement: " — ",
		},
		Clipboard: ClipboardConfig{
			KeepOriginal: true,
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Address:       "localhost:1921",
			ShutdownGrace: Duration(5 * time.Second),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges it over the defaults but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv fills empty values from the environment (never saved back to disk).
func applyEnv(cfg *Config) {
	if cfg.Geocoder.Locale == "" {
		cfg.Geocoder.Locale = os.Getenv("OSMANDLINK_LOCALE")
	}
	if cfg.Geocoder.CountryCodes == "" {
		cfg.Geocoder.CountryCodes = os.Getenv("OSMANDLINK_COUNTRY_CODES")
	}
	if cfg.Geocoder.UserAgent == "" {
		cfg.Geocoder.UserAgent = os.Getenv("OSMANDLINK_USER_AGENT")
	}
}

var countryCodesRe = regexp.MustCompile(`^[a-zA-Z]{2}(,[a-zA-Z]{2})*$`)

// Validate checks value ranges that YAML types cannot express.
func (c *Config) Validate() error {
	if c.Link.Zoom < 1 || c.Link.Zoom > 22 {
		return fmt.Errorf("invalid link.zoom %d: must be 1-22", c.Link.Zoom)
	}
	if c.Link.Decimals < 0 || c.Link.Decimals > 15 {
		return fmt.Errorf("invalid link.decimals %d: must be 0-15", c.Link.Decimals)
	}
	if c.Geocoder.Limit < 1 {
		return fmt.Errorf("invalid geocoder.limit %d: must be at least 1", c.Geocoder.Limit)
	}
	if c.Geocoder.CountryCodes != "" && !countryCodesRe.MatchString(c.Geocoder.CountryCodes) {
		return fmt.Errorf("invalid geocoder.country_codes %q: want comma-separated ISO 3166-1 alpha-2 codes", c.Geocoder.CountryCodes)
	}
	if c.Geocoder.Locale != "" {
		if _, err := language.Parse(c.Geocoder.Locale); err != nil {
			return fmt.Errorf("invalid geocoder.locale %q: %w", c.Geocoder.Locale, err)
		}
	}
	switch c.Geocoder.Transport {
	case "auto", "queued", "direct":
	default:
		return fmt.Errorf("invalid geocoder.transport %q: must be auto, queued or direct", c.Geocoder.Transport)
	}
	if c.Hotkey.Key == "" {
		return fmt.Errorf("hotkey must name a key")
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# OsmAnd Link Helper Configuration
# ---------------------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reStyle := regexp.MustCompile(`(?m)^(\s+)style:`)
	data = reStyle.ReplaceAll(data, []byte("${1}# Options: map, go\n${1}style:"))

	reTransport := regexp.MustCompile(`(?m)^(\s+)transport:`)
	data = reTransport.ReplaceAll(data, []byte("${1}# Options: auto, queued, direct\n${1}transport:"))

	rePolicy := regexp.MustCompile(`(?m)^append:`)
	data = rePolicy.ReplaceAll(data, []byte("# Policies: none, link, address_and_link, all\nappend:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}

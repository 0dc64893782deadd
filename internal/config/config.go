package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const configDir = ".crawlchat"
const configFile = "config.json"

const envPrefix = "CRAWLCHAT"

const (
	DefaultAPIURL      = "http://localhost:8000/chat"
	DefaultCompanyName = "Assistant"
	DefaultRelayListen = ":8787"
	DefaultAPIKeyEnv   = "OPENAI_API_KEY"
	DefaultRelayRate   = 2.0
	DefaultRelayBurst  = 5
)

type Config struct {
	APIURL      string   `json:"api_url" mapstructure:"api_url"`
	ProxyURL    string   `json:"proxy_url,omitempty" mapstructure:"proxy_url"`
	URLs        []string `json:"urls,omitempty" mapstructure:"urls"`
	CompanyName string   `json:"company_name" mapstructure:"company_name"`
	ShowWelcome bool     `json:"show_welcome" mapstructure:"show_welcome"`
	LogFile     string   `json:"log_file,omitempty" mapstructure:"log_file"`
	LogLevel    string   `json:"log_level,omitempty" mapstructure:"log_level"`
	Relay       Relay    `json:"relay" mapstructure:"relay"`
	Profile     string   `json:"-" mapstructure:"-"`

	// overrides maps keys taken from CRAWLCHAT_* variables to their file
	// values, which Save writes back instead.
	overrides map[string]string
}

// Relay configures the `crawlchat relay` server.
type Relay struct {
	Listen    string `json:"listen" mapstructure:"listen"`
	Upstream  string `json:"upstream,omitempty" mapstructure:"upstream"`
	APIKeyEnv string `json:"api_key_env" mapstructure:"api_key_env"`
	// RateLimit is requests per second allowed per client; 0 disables it.
	RateLimit float64 `json:"rate_limit" mapstructure:"rate_limit"`
	Burst     int     `json:"burst" mapstructure:"burst"`
}

// Keys lists every settable key, in display order.
var Keys = []string{
	"api_url",
	"proxy_url",
	"urls",
	"company_name",
	"show_welcome",
	"log_file",
	"log_level",
	"relay.listen",
	"relay.upstream",
	"relay.api_key_env",
	"relay.rate_limit",
	"relay.burst",
}

func configPath(profile string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot find home directory: %w", err)
	}
	filename := configFile
	if profile != "" {
		filename = fmt.Sprintf("config-%s.json", profile)
	}
	return filepath.Join(home, configDir, filename), nil
}

// Path returns the file backing this config's profile.
func (c *Config) Path() (string, error) {
	return configPath(c.Profile)
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// EnvName is the variable that overrides key, e.g. CRAWLCHAT_RELAY_UPSTREAM.
func EnvName(key string) string {
	return envPrefix + "_" + strings.ToUpper(envKeyReplacer.Replace(key))
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)

	v.SetDefault("api_url", DefaultAPIURL)
	v.SetDefault("proxy_url", "")
	v.SetDefault("urls", []string{})
	v.SetDefault("company_name", DefaultCompanyName)
	v.SetDefault("show_welcome", true)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("relay.listen", DefaultRelayListen)
	v.SetDefault("relay.upstream", "")
	v.SetDefault("relay.api_key_env", DefaultAPIKeyEnv)
	v.SetDefault("relay.rate_limit", DefaultRelayRate)
	v.SetDefault("relay.burst", DefaultRelayBurst)
	return v
}

// Load reads the profile's config file, applying defaults and CRAWLCHAT_*
// environment overrides. A missing file yields the defaults.
func Load(profile string) (*Config, error) {
	path, err := configPath(profile)
	if err != nil {
		return nil, err
	}

	v := newViper(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	file := fromViper(v, profile)

	v.AutomaticEnv()
	cfg := fromViper(v, profile)

	for _, key := range Keys {
		if os.Getenv(EnvName(key)) == "" {
			continue
		}
		value, err := file.Get(key)
		if err != nil {
			return nil, err
		}
		if cfg.overrides == nil {
			cfg.overrides = make(map[string]string)
		}
		cfg.overrides[key] = value
	}
	return cfg, nil
}

func fromViper(v *viper.Viper, profile string) *Config {
	cfg := &Config{
		APIURL:      v.GetString("api_url"),
		ProxyURL:    v.GetString("proxy_url"),
		URLs:        v.GetStringSlice("urls"),
		CompanyName: v.GetString("company_name"),
		ShowWelcome: v.GetBool("show_welcome"),
		LogFile:     v.GetString("log_file"),
		LogLevel:    v.GetString("log_level"),
		Relay: Relay{
			Listen:    v.GetString("relay.listen"),
			Upstream:  v.GetString("relay.upstream"),
			APIKeyEnv: v.GetString("relay.api_key_env"),
			RateLimit: v.GetFloat64("relay.rate_limit"),
			Burst:     v.GetInt("relay.burst"),
		},
		Profile: profile,
	}
	cfg.URLs = splitURLs(cfg.URLs)
	return cfg
}

// Overridden lists the keys whose value came from the environment.
func (c *Config) Overridden() []string {
	keys := make([]string, 0, len(c.overrides))
	for k := range c.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Save writes the config file. Environment overrides are not persisted: those
// keys keep their file values unless Set changed them.
func (c *Config) Save() error {
	path, err := configPath(c.Profile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	out := *c
	for key, value := range c.overrides {
		if err := out.assign(key, value); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Endpoint is where chat requests go: the relay when one is configured,
// otherwise the backend directly.
func (c *Config) Endpoint() string {
	if c.ProxyURL != "" {
		return c.ProxyURL
	}
	return c.APIURL
}

func (c *Config) profileFlag() string {
	if c.Profile == "" {
		return ""
	}
	return " --profile " + c.Profile
}

func (c *Config) Validate() error {
	pf := c.profileFlag()
	endpoint := c.Endpoint()
	if endpoint == "" {
		return fmt.Errorf("no chat endpoint. Run: crawlchat%s set api_url <url>", pf)
	}
	if err := checkURL(endpoint); err != nil {
		return fmt.Errorf("invalid chat endpoint %q: %w. Run: crawlchat%s set api_url <url>", endpoint, err, pf)
	}
	return nil
}

func (c *Config) ValidateRelay() error {
	pf := c.profileFlag()
	if c.Relay.Upstream == "" {
		return fmt.Errorf("relay upstream not set. Run: crawlchat%s set relay.upstream <url>", pf)
	}
	if err := checkURL(c.Relay.Upstream); err != nil {
		return fmt.Errorf("invalid relay upstream %q: %w", c.Relay.Upstream, err)
	}
	if c.Relay.APIKeyEnv == "" {
		return fmt.Errorf("relay api_key_env is empty. Run: crawlchat%s set relay.api_key_env <NAME>", pf)
	}
	if c.Relay.RateLimit < 0 {
		return fmt.Errorf("relay rate_limit must not be negative")
	}
	if c.Relay.RateLimit > 0 && c.Relay.Burst < 1 {
		return fmt.Errorf("relay burst must be at least 1 when rate_limit is set")
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// Set assigns one key from its string form. urls takes a comma-separated
// list; show_welcome takes a boolean. A set key is saved even when the
// environment overrode it.
func (c *Config) Set(key, value string) error {
	if err := c.assign(key, value); err != nil {
		return err
	}
	delete(c.overrides, key)
	return nil
}

func (c *Config) assign(key, value string) error {
	switch key {
	case "api_url":
		c.APIURL = value
	case "proxy_url":
		c.ProxyURL = value
	case "urls":
		c.URLs = splitURLs([]string{value})
	case "company_name":
		c.CompanyName = value
	case "show_welcome":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("show_welcome must be true or false: %w", err)
		}
		c.ShowWelcome = b
	case "log_file":
		c.LogFile = value
	case "log_level":
		c.LogLevel = value
	case "relay.listen":
		c.Relay.Listen = value
	case "relay.upstream":
		c.Relay.Upstream = value
	case "relay.api_key_env":
		c.Relay.APIKeyEnv = value
	case "relay.rate_limit":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("relay.rate_limit must be a number: %w", err)
		}
		c.Relay.RateLimit = f
	case "relay.burst":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("relay.burst must be an integer: %w", err)
		}
		c.Relay.Burst = n
	default:
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Get returns the string form of a key, as accepted by Set.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "proxy_url":
		return c.ProxyURL, nil
	case "urls":
		return strings.Join(c.URLs, ","), nil
	case "company_name":
		return c.CompanyName, nil
	case "show_welcome":
		return strconv.FormatBool(c.ShowWelcome), nil
	case "log_file":
		return c.LogFile, nil
	case "log_level":
		return c.LogLevel, nil
	case "relay.listen":
		return c.Relay.Listen, nil
	case "relay.upstream":
		return c.Relay.Upstream, nil
	case "relay.api_key_env":
		return c.Relay.APIKeyEnv, nil
	case "relay.rate_limit":
		return strconv.FormatFloat(c.Relay.RateLimit, 'g', -1, 64), nil
	case "relay.burst":
		return strconv.Itoa(c.Relay.Burst), nil
	}
	return "", fmt.Errorf("unknown key %q", key)
}

// splitURLs flattens comma-separated entries, as produced by env overrides.
func splitURLs(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func ListProfiles() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot find home directory: %w", err)
	}
	dir := filepath.Join(home, configDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config directory: %w", err)
	}
	var profiles []string
	for _, e := range entries {
		name := e.Name()
		if name == configFile {
			profiles = append(profiles, "default")
			continue
		}
		if strings.HasPrefix(name, "config-") && strings.HasSuffix(name, ".json") {
			profiles = append(profiles, strings.TrimSuffix(strings.TrimPrefix(name, "config-"), ".json"))
		}
	}
	sort.Strings(profiles)
	return profiles, nil
}

func ProfileName(profile string) string {
	if profile == "" {
		return "default"
	}
	return profile
}

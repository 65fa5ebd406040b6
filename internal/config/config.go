package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ppiankov/feedstream/internal/source"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile  = "config.yaml"
	DefaultEnvFile     = ".env"
	DefaultStoragePath = ".feedstream/seen.db"
	DefaultBackend     = BackendSQLite
	DefaultDSNEnv      = "FEEDSTREAM_POSTGRES_DSN"
	DefaultPollPeriod  = 60 * time.Second
	DefaultUserAgent   = "feedstream/1.0"
	DefaultAuthMode    = AuthAnonymous
	DefaultFormat      = "terminal"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	AuthAnonymous = "anonymous"
	AuthPassword  = "password"
)

// Duration wraps time.Duration for YAML unmarshaling from strings like "60s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Sources SourcesConfig `yaml:"sources"`
	Stream  StreamConfig  `yaml:"stream"`
	Storage StorageConfig `yaml:"storage"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

type SourcesConfig struct {
	Reddit RedditConfig `yaml:"reddit"`
	RSS    RSSConfig    `yaml:"rss"`
	HN     HNConfig     `yaml:"hn"`
}

type RedditConfig struct {
	UserAgent  string           `yaml:"user_agent"`
	Subreddits []string         `yaml:"subreddits"`
	Multis     []string         `yaml:"multis"`
	Auth       RedditAuthConfig `yaml:"auth"`
}

type RedditAuthConfig struct {
	Mode            string `yaml:"mode"`
	ClientIDEnv     string `yaml:"client_id_env"`
	ClientSecretEnv string `yaml:"client_secret_env"`
	UsernameEnv     string `yaml:"username_env"`
	PasswordEnv     string `yaml:"password_env"`

	// Resolved from env vars at load time.
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	Username     string `yaml:"-"`
	Password     string `yaml:"-"`
}

type RSSConfig struct {
	Feeds []string `yaml:"feeds"`
}

type HNConfig struct {
	Lists     []string `yaml:"lists"`
	MinPoints int      `yaml:"min_points"`
}

type StreamConfig struct {
	Sort        string   `yaml:"sort"`
	Window      string   `yaml:"window"`
	PollPeriod  Duration `yaml:"poll_period"`
	JitterMin   Duration `yaml:"jitter_min"`
	JitterMax   Duration `yaml:"jitter_max"`
	SkipInitial *bool    `yaml:"skip_initial"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DSNEnv  string `yaml:"dsn_env"`

	// Resolved from env var at load time.
	DSN string `yaml:"-"`
}

type OutputConfig struct {
	Format string   `yaml:"format"`
	Color  *bool    `yaml:"color"`
	Redact []string `yaml:"redact"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SkipInitialOrDefault reports whether the first batch of every source is swallowed.
func (s StreamConfig) SkipInitialOrDefault() bool {
	return s.SkipInitial == nil || *s.SkipInitial
}

// ColorOrDefault reports whether terminal output uses ANSI colors.
func (o OutputConfig) ColorOrDefault() bool {
	return o.Color == nil || *o.Color
}

// ParsedSort parses the configured sort selector.
func (s StreamConfig) ParsedSort() (source.Sort, error) {
	return source.ParseSort(s.Sort, s.Window)
}

// HasSources reports whether at least one source is configured.
func (c *Config) HasSources() bool {
	s := c.Sources
	return len(s.Reddit.Subreddits) > 0 ||
		len(s.Reddit.Multis) > 0 ||
		len(s.RSS.Feeds) > 0 ||
		len(s.HN.Lists) > 0
}

// LoadEnvFiles loads KEY=value files into the process environment. Missing
// files are skipped and variables already set are kept.
func LoadEnvFiles(paths ...string) error {
	existing := lo.Filter(paths, func(p string, _ int) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	r := &cfg.Sources.Reddit
	if r.UserAgent == "" {
		r.UserAgent = DefaultUserAgent
	}
	r.Subreddits = cleanList(r.Subreddits)
	r.Multis = cleanList(r.Multis)
	if r.Auth.Mode == "" {
		r.Auth.Mode = DefaultAuthMode
	}
	if r.Auth.ClientIDEnv == "" {
		r.Auth.ClientIDEnv = "REDDIT_CLIENT_ID"
	}
	if r.Auth.ClientSecretEnv == "" {
		r.Auth.ClientSecretEnv = "REDDIT_CLIENT_SECRET"
	}
	if r.Auth.UsernameEnv == "" {
		r.Auth.UsernameEnv = "REDDIT_USERNAME"
	}
	if r.Auth.PasswordEnv == "" {
		r.Auth.PasswordEnv = "REDDIT_PASSWORD"
	}

	cfg.Sources.RSS.Feeds = cleanList(cfg.Sources.RSS.Feeds)
	cfg.Sources.HN.Lists = cleanList(cfg.Sources.HN.Lists)

	if cfg.Stream.PollPeriod.Duration == 0 {
		cfg.Stream.PollPeriod.Duration = DefaultPollPeriod
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultBackend
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = DefaultStoragePath
	}
	if cfg.Storage.DSNEnv == "" {
		cfg.Storage.DSNEnv = DefaultDSNEnv
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultFormat
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// cleanList trims entries and drops blanks and duplicates, keeping order.
func cleanList(items []string) []string {
	trimmed := lo.Map(items, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(trimmed))
}

func resolveEnv(cfg *Config) {
	a := &cfg.Sources.Reddit.Auth
	a.ClientID = os.Getenv(a.ClientIDEnv)
	a.ClientSecret = os.Getenv(a.ClientSecretEnv)
	a.Username = os.Getenv(a.UsernameEnv)
	a.Password = os.Getenv(a.PasswordEnv)

	cfg.Storage.DSN = os.Getenv(cfg.Storage.DSNEnv)
}

func validate(cfg *Config) error {
	if !cfg.HasSources() {
		return errors.New("sources: at least one source must be configured")
	}

	for _, m := range cfg.Sources.Reddit.Multis {
		if _, _, err := SplitMulti(m); err != nil {
			return fmt.Errorf("sources.reddit.multis: %w", err)
		}
	}

	switch cfg.Sources.Reddit.Auth.Mode {
	case AuthAnonymous:
	case AuthPassword:
		a := cfg.Sources.Reddit.Auth
		if a.ClientID == "" || a.Username == "" {
			return fmt.Errorf("sources.reddit.auth: password mode needs %s and %s set", a.ClientIDEnv, a.UsernameEnv)
		}
	default:
		return fmt.Errorf("sources.reddit.auth.mode: unknown mode %q (want anonymous or password)", cfg.Sources.Reddit.Auth.Mode)
	}

	for _, l := range cfg.Sources.HN.Lists {
		if !lo.Contains([]string{"new", "top", "best"}, l) {
			return fmt.Errorf("sources.hn.lists: unknown list %q (want new, top or best)", l)
		}
	}
	if cfg.Sources.HN.MinPoints < 0 {
		return errors.New("sources.hn.min_points: must not be negative")
	}

	if _, err := cfg.Stream.ParsedSort(); err != nil {
		return fmt.Errorf("stream.sort: %w", err)
	}
	if cfg.Stream.PollPeriod.Duration < 0 {
		return errors.New("stream.poll_period: must be positive")
	}
	if cfg.Stream.JitterMin.Duration < 0 || cfg.Stream.JitterMax.Duration < 0 {
		return errors.New("stream.jitter: must not be negative")
	}

	switch cfg.Storage.Backend {
	case BackendMemory, BackendSQLite:
	case BackendPostgres:
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage: postgres backend needs %s set", cfg.Storage.DSNEnv)
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q (want memory, sqlite or postgres)", cfg.Storage.Backend)
	}

	if !lo.Contains([]string{"terminal", "json", "markdown"}, cfg.Output.Format) {
		return fmt.Errorf("output.format: unknown format %q (want terminal, json or markdown)", cfg.Output.Format)
	}
	if !lo.Contains([]string{"text", "json"}, cfg.Log.Format) {
		return fmt.Errorf("log.format: unknown format %q (want text or json)", cfg.Log.Format)
	}

	return nil
}

// SplitMulti splits a "user/name" multireddit reference.
func SplitMulti(ref string) (user, name string, err error) {
	user, name, ok := strings.Cut(strings.TrimPrefix(ref, "/"), "/")
	if !ok || user == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid multireddit %q (want user/name)", ref)
	}
	return user, name, nil
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/feedstream/internal/source"
)

func writeTestYAML(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
	return path
}

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_REDDIT_ID", "cid")
	t.Setenv("TEST_REDDIT_SECRET", "csecret")
	t.Setenv("TEST_REDDIT_USER", "gopher")
	t.Setenv("TEST_REDDIT_PASS", "hunter2")
	t.Setenv("TEST_PG_DSN", "postgres://localhost/feedstream")

	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  reddit:
    user_agent: "test/1.0"
    subreddits: [golang, " rust ", golang, ""]
    multis: ["someone/tech"]
    auth:
      mode: password
      client_id_env: TEST_REDDIT_ID
      client_secret_env: TEST_REDDIT_SECRET
      username_env: TEST_REDDIT_USER
      password_env: TEST_REDDIT_PASS
  rss:
    feeds: ["https://go.dev/blog/feed.atom"]
  hn:
    lists: [new, top]
    min_points: 50
stream:
  sort: top
  window: week
  poll_period: 30s
  jitter_min: 1s
  jitter_max: 5s
  skip_initial: false
storage:
  backend: postgres
  dsn_env: TEST_PG_DSN
output:
  format: json
  color: false
  redact: ["(?i)token"]
log:
  level: debug
  format: json
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Sources
	r := cfg.Sources.Reddit
	if r.UserAgent != "test/1.0" {
		t.Errorf("user_agent = %q", r.UserAgent)
	}
	if strings.Join(r.Subreddits, ",") != "golang,rust" {
		t.Errorf("subreddits = %v, want [golang rust]", r.Subreddits)
	}
	if r.Auth.ClientID != "cid" || r.Auth.ClientSecret != "csecret" {
		t.Errorf("client credentials not resolved: %+v", r.Auth)
	}
	if r.Auth.Username != "gopher" || r.Auth.Password != "hunter2" {
		t.Errorf("user credentials not resolved: %+v", r.Auth)
	}
	if cfg.Sources.HN.MinPoints != 50 || len(cfg.Sources.HN.Lists) != 2 {
		t.Errorf("hn = %+v", cfg.Sources.HN)
	}

	// Stream
	sort, err := cfg.Stream.ParsedSort()
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	if sort != (source.Sort{Order: source.OrderTop, Window: source.WindowWeek}) {
		t.Errorf("sort = %+v", sort)
	}
	if cfg.Stream.PollPeriod.Duration != 30*time.Second {
		t.Errorf("poll_period = %v", cfg.Stream.PollPeriod.Duration)
	}
	if cfg.Stream.JitterMin.Duration != time.Second || cfg.Stream.JitterMax.Duration != 5*time.Second {
		t.Errorf("jitter = %v..%v", cfg.Stream.JitterMin.Duration, cfg.Stream.JitterMax.Duration)
	}
	if cfg.Stream.SkipInitialOrDefault() {
		t.Error("skip_initial should be false")
	}

	// Storage
	if cfg.Storage.Backend != BackendPostgres {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.DSN != "postgres://localhost/feedstream" {
		t.Errorf("dsn = %q", cfg.Storage.DSN)
	}

	// Output and log
	if cfg.Output.Format != "json" || cfg.Output.ColorOrDefault() {
		t.Errorf("output = %+v", cfg.Output)
	}
	if len(cfg.Output.Redact) != 1 {
		t.Errorf("redact = %v", cfg.Output.Redact)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
sources:
  rss:
    feeds: ["https://example.com/feed.xml"]
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Storage.Backend != DefaultBackend {
		t.Errorf("backend = %q, want %q", cfg.Storage.Backend, DefaultBackend)
	}
	if cfg.Storage.Path != DefaultStoragePath {
		t.Errorf("storage path = %q, want %q", cfg.Storage.Path, DefaultStoragePath)
	}
	if cfg.Storage.DSNEnv != DefaultDSNEnv {
		t.Errorf("dsn_env = %q", cfg.Storage.DSNEnv)
	}
	if cfg.Stream.PollPeriod.Duration != DefaultPollPeriod {
		t.Errorf("poll_period = %v", cfg.Stream.PollPeriod.Duration)
	}
	if !cfg.Stream.SkipInitialOrDefault() {
		t.Error("skip_initial should default to true")
	}
	if !cfg.Output.ColorOrDefault() {
		t.Error("color should default to true")
	}
	if cfg.Sources.Reddit.Auth.Mode != AuthAnonymous {
		t.Errorf("auth mode = %q", cfg.Sources.Reddit.Auth.Mode)
	}
	if cfg.Sources.Reddit.UserAgent != DefaultUserAgent {
		t.Errorf("user agent = %q", cfg.Sources.Reddit.UserAgent)
	}
	sort, err := cfg.Stream.ParsedSort()
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	if sort != source.SortNew {
		t.Errorf("sort = %+v, want new", sort)
	}
	if cfg.Output.Format != DefaultFormat || cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("unexpected output/log defaults: %+v %+v", cfg.Output, cfg.Log)
	}
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"no sources", `stream: {sort: new}`, "at least one source"},
		{"bad multi", `sources: {reddit: {multis: ["nouser"]}}`, "multireddit"},
		{"bad auth mode", `sources: {reddit: {subreddits: [go], auth: {mode: oauth}}}`, "auth.mode"},
		{"password without creds", `sources: {reddit: {subreddits: [go], auth: {mode: password, client_id_env: FEEDSTREAM_TEST_UNSET_ID, username_env: FEEDSTREAM_TEST_UNSET_USER}}}`, "password mode"},
		{"bad hn list", `sources: {hn: {lists: [ask]}}`, "sources.hn.lists"},
		{"bad sort", `sources: {hn: {lists: [new]}}
stream: {sort: trending}`, "stream.sort"},
		{"negative period", `sources: {hn: {lists: [new]}}
stream: {poll_period: -5s}`, "poll_period"},
		{"bad duration", `sources: {hn: {lists: [new]}}
stream: {poll_period: soon}`, "parse duration"},
		{"bad backend", `sources: {hn: {lists: [new]}}
storage: {backend: redis}`, "storage.backend"},
		{"postgres without dsn", `sources: {hn: {lists: [new]}}
storage: {backend: postgres, dsn_env: FEEDSTREAM_TEST_UNSET_DSN}`, "FEEDSTREAM_TEST_UNSET_DSN"},
		{"bad format", `sources: {hn: {lists: [new]}}
output: {format: xml}`, "output.format"},
		{"bad log format", `sources: {hn: {lists: [new]}}
log: {format: logfmt}`, "log.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTestYAML(t, dir, DefaultConfigFile, tc.yaml)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config")
	}
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeTestYAML(t, dir, DefaultEnvFile, "FEEDSTREAM_TEST_FROM_ENV=loaded\nFEEDSTREAM_TEST_KEEP=fromfile\n")
	t.Setenv("FEEDSTREAM_TEST_KEEP", "fromenv")
	t.Setenv("FEEDSTREAM_TEST_FROM_ENV", "")
	if err := os.Unsetenv("FEEDSTREAM_TEST_FROM_ENV"); err != nil {
		t.Fatalf("unsetenv: %v", err)
	}

	if err := LoadEnvFiles(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load env files: %v", err)
	}
	if got := os.Getenv("FEEDSTREAM_TEST_FROM_ENV"); got != "loaded" {
		t.Errorf("FEEDSTREAM_TEST_FROM_ENV = %q, want loaded", got)
	}
	if got := os.Getenv("FEEDSTREAM_TEST_KEEP"); got != "fromenv" {
		t.Errorf("existing variable overwritten: %q", got)
	}
}

func TestSplitMulti(t *testing.T) {
	user, name, err := SplitMulti("/someone/tech")
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if user != "someone" || name != "tech" {
		t.Errorf("got %q/%q", user, name)
	}

	for _, bad := range []string{"", "someone", "someone/", "/tech", "a/b/c"} {
		if _, _, err := SplitMulti(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ppiankov/feedstream/internal/config"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config directory with an example config.yaml",
	RunE:  initAction,
}

func initAction(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, config.DefaultConfigFile)
	wrote, err := writeIfNotExists(w, configPath, []byte(exampleConfig))
	if err != nil {
		return err
	}

	if !wrote {
		fmt.Fprintf(w, "Config directory %s already initialized.\n", configDir)
	} else {
		fmt.Fprintf(w, "Initialized %s.\n", configDir)
	}
	return nil
}

// writeIfNotExists writes data to path if the file does not exist.
// Returns true if the file was created.
func writeIfNotExists(w io.Writer, path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  exists: %s\n", path)
		return false, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(w, "  created: %s\n", path)
	return true, nil
}

const exampleConfig = `# feedstream configuration

sources:
  reddit:
    user_agent: "feedstream/1.0 (by u/your_username)"
    subreddits:
      - golang
    multis: []
    # - "someuser/somemulti"
    auth:
      mode: anonymous
      # mode: password
      client_id_env: REDDIT_CLIENT_ID
      client_secret_env: REDDIT_CLIENT_SECRET
      username_env: REDDIT_USERNAME
      password_env: REDDIT_PASSWORD
  rss:
    feeds: []
    # - "https://go.dev/blog/feed.atom"
  hn:
    lists: []
    # - new
    min_points: 0

stream:
  sort: new
  window: day
  poll_period: 60s
  jitter_min: 0s
  jitter_max: 10s
  skip_initial: true

storage:
  backend: sqlite
  path: .feedstream/seen.db
  dsn_env: FEEDSTREAM_POSTGRES_DSN

output:
  format: terminal  # terminal | json | markdown
  color: true
  redact: []

log:
  level: info
  format: text
`

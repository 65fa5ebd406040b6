package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/feedstream/internal/config"
	"github.com/ppiankov/feedstream/internal/output"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check config, storage and credentials",
	RunE:  doctorAction,
}

func doctorAction(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	ctx := cmd.Context()
	ok := true

	// Config dir
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		printCheck(w, false, "config directory %s", configDir)
		ok = false
	} else {
		printCheck(w, true, "config directory %s", configDir)
	}

	// Config file
	cfg, err := loadConfig()
	if err != nil {
		printCheck(w, false, "config.yaml: %v", err)
		return fmt.Errorf("some checks failed")
	}
	s := cfg.Sources
	printCheck(w, true, "config.yaml (%d subreddits, %d multireddits, %d rss feeds, %d hn lists)",
		len(s.Reddit.Subreddits), len(s.Reddit.Multis), len(s.RSS.Feeds), len(s.HN.Lists))

	// Redaction patterns
	if _, err := output.CompileRedact(cfg.Output.Redact); err != nil {
		printCheck(w, false, "output.redact: %v", err)
		ok = false
	} else if len(cfg.Output.Redact) > 0 {
		printCheck(w, true, "output.redact (%d patterns)", len(cfg.Output.Redact))
	}

	// Storage
	if !checkStorage(ctx, w, cfg) {
		ok = false
	}

	// Reddit credentials
	if cfg.Sources.Reddit.Auth.Mode == config.AuthPassword {
		client, err := newRedditClient(ctx, cfg.Sources.Reddit)
		if err != nil {
			printCheck(w, false, "reddit password login: %v", err)
			ok = false
		} else {
			_ = client.Logout(ctx)
			printCheck(w, true, "reddit password login as %s", cfg.Sources.Reddit.Auth.Username)
		}
	}

	if !ok {
		return fmt.Errorf("some checks failed")
	}
	fmt.Fprintln(w, "\nAll checks passed.")
	return nil
}

func checkStorage(ctx context.Context, w io.Writer, cfg *config.Config) bool {
	if cfg.Storage.Backend == config.BackendMemory {
		printCheck(w, true, "storage: memory (seen items are forgotten on exit)")
		return true
	}

	st, err := openPersistent(ctx, cfg)
	if err != nil {
		printCheck(w, false, "storage %s: %v", cfg.Storage.Backend, err)
		return false
	}
	defer func() { _ = st.Close() }()

	n, err := st.Count(ctx)
	if err != nil {
		printCheck(w, false, "storage %s: %v", cfg.Storage.Backend, err)
		return false
	}

	where := cfg.Storage.Path
	if cfg.Storage.Backend == config.BackendPostgres {
		where = "$" + cfg.Storage.DSNEnv
	}
	printCheck(w, true, "storage %s %s (%d seen items)", cfg.Storage.Backend, where, n)
	return true
}

func printCheck(w io.Writer, pass bool, format string, args ...any) {
	mark := "FAIL"
	if pass {
		mark = " OK "
	}
	fmt.Fprintf(w, "[%s] %s\n", mark, fmt.Sprintf(format, args...))
}

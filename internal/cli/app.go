package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ppiankov/feedstream/internal/auth"
	"github.com/ppiankov/feedstream/internal/config"
	"github.com/ppiankov/feedstream/internal/dedup"
	"github.com/ppiankov/feedstream/internal/logging"
	"github.com/ppiankov/feedstream/internal/source"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// loadConfig reads .env files and config.yaml from configDir.
func loadConfig() (*config.Config, error) {
	envFiles := []string{config.DefaultEnvFile, filepath.Join(configDir, config.DefaultEnvFile)}
	if err := config.LoadEnvFiles(lo.Uniq(envFiles)...); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.Config) (*logrus.Logger, error) {
	l := logging.New()
	if err := logging.Setup(l, w, cfg.Log); err != nil {
		return nil, err
	}
	return l, nil
}

// openStore returns the dedup store for cfg. The memory backend yields a nil
// store so that each source gets its own set.
func openStore(ctx context.Context, cfg *config.Config) (dedup.Store, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return nil, noop, nil
	case config.BackendPostgres:
		st, err := dedup.OpenPostgres(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open postgres store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	default:
		st, err := dedup.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, func() { _ = st.Close() }, nil
	}
}

// openPersistent opens the configured store for inspection commands.
func openPersistent(ctx context.Context, cfg *config.Config) (dedup.Persistent, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return nil, fmt.Errorf("storage backend %q keeps no history", config.BackendMemory)
	case config.BackendPostgres:
		st, err := dedup.OpenPostgres(ctx, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	default:
		st, err := dedup.OpenSQLite(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	}
}

// newRedditClient builds and logs in the Reddit client described by cfg.
func newRedditClient(ctx context.Context, cfg config.RedditConfig) (*source.RedditClient, error) {
	var a auth.Authenticator
	if cfg.Auth.Mode == config.AuthPassword {
		pw, err := auth.NewPassword(auth.Credentials{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Username:     cfg.Auth.Username,
			Password:     cfg.Auth.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("reddit auth: %w", err)
		}
		a = pw
	}

	client := source.NewReddit(a, cfg.UserAgent)
	if err := client.Login(ctx); err != nil {
		return nil, fmt.Errorf("reddit login: %w", err)
	}
	return client, nil
}

// buildSources creates every configured source. Multireddits are expanded
// into their member subreddits; a subreddit listed twice is polled once.
func buildSources(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) ([]source.Source, *source.RedditClient, error) {
	var sources []source.Source
	var reddit *source.RedditClient

	rc := cfg.Sources.Reddit
	if len(rc.Subreddits) > 0 || len(rc.Multis) > 0 {
		client, err := newRedditClient(ctx, rc)
		if err != nil {
			return nil, nil, err
		}
		reddit = client

		subs := lo.Map(rc.Subreddits, func(name string, _ int) *source.Subreddit {
			return client.Subreddit(name)
		})
		for _, ref := range rc.Multis {
			user, name, err := config.SplitMulti(ref)
			if err != nil {
				return nil, nil, err
			}
			members, err := client.Multi(ctx, user, name)
			if err != nil {
				return nil, nil, fmt.Errorf("expand multireddit: %w", err)
			}
			logger.WithFields(logrus.Fields{"multi": ref, "members": len(members)}).Debug("multireddit expanded")
			subs = append(subs, members...)
		}

		subs = lo.UniqBy(subs, func(s *source.Subreddit) string { return s.Name() })
		for _, s := range subs {
			sources = append(sources, s)
		}
	}

	for _, feed := range cfg.Sources.RSS.Feeds {
		rs, err := source.NewRSS(feed)
		if err != nil {
			return nil, nil, fmt.Errorf("create rss source: %w", err)
		}
		sources = append(sources, rs)
	}

	for _, list := range cfg.Sources.HN.Lists {
		hn, err := source.NewHN(list, cfg.Sources.HN.MinPoints)
		if err != nil {
			return nil, nil, fmt.Errorf("create hn source: %w", err)
		}
		sources = append(sources, hn)
	}

	return sources, reddit, nil
}

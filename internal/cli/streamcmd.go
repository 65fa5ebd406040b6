package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ppiankov/feedstream/internal/output"
	"github.com/ppiankov/feedstream/internal/stream"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	streamLimit   int
	streamFormat  string
	streamNoColor bool
)

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Poll all configured sources and print new items as they appear",
	RunE:  streamAction,
}

func init() {
	streamCmd.Flags().IntVar(&streamLimit, "limit", 0, "stop after this many items (0 = run until interrupted)")
	streamCmd.Flags().StringVar(&streamFormat, "format", "", "output format: terminal, json, markdown (default from config)")
	streamCmd.Flags().BoolVar(&streamNoColor, "no-color", false, "disable ANSI colors")
	rootCmd.AddCommand(streamCmd)
}

const logoutTimeout = 5 * time.Second

func streamAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	redact, err := output.CompileRedact(cfg.Output.Redact)
	if err != nil {
		return err
	}
	format := cfg.Output.Format
	if streamFormat != "" {
		format = streamFormat
	}
	formatter, err := output.New(format, cfg.Output.ColorOrDefault() && !streamNoColor, redact)
	if err != nil {
		return err
	}

	sort, err := cfg.Stream.ParsedSort()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sources, reddit, err := buildSources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if reddit != nil {
		defer func() {
			logoutCtx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
			defer cancel()
			if err := reddit.Logout(logoutCtx); err != nil {
				logger.WithError(err).Warn("reddit logout failed")
			}
		}()
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	b := stream.NewBuilder()
	if store != nil {
		b = stream.NewPersistentBuilder().Store(store)
	}
	s, err := b.
		Source(sources...).
		Sort(sort).
		Period(cfg.Stream.PollPeriod.Duration).
		SkipInitial(cfg.Stream.SkipInitialOrDefault()).
		Logger(logger).
		Build(stream.Jitter{Min: cfg.Stream.JitterMin.Duration, Max: cfg.Stream.JitterMax.Duration})
	if err != nil {
		return fmt.Errorf("build stream: %w", err)
	}

	for _, info := range s.Sources() {
		logger.WithFields(logrus.Fields{
			"source":     info.Name,
			"period":     info.Period,
			"tick_first": info.TickFirst,
		}).Debug("source scheduled")
	}

	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Close()

	printed, err := consume(cmd.OutOrStdout(), s, formatter, streamLimit, logger)
	logger.WithField("items", printed).Info("stream ended")
	return err
}

// consume prints results until the stream ends. Once limit items have been
// printed the stream is stopped and whatever it still delivers is dropped.
func consume(w io.Writer, s *stream.Stream, f output.Formatter, limit int, logger logrus.FieldLogger) (int, error) {
	printed, dropped := 0, 0
	stopped := false

	for r := range s.Results() {
		if stopped {
			dropped++
			continue
		}

		if err := f.Write(w, r); err != nil {
			s.Stop()
			return printed, fmt.Errorf("write output: %w", err)
		}
		if r.Err != nil {
			continue
		}

		printed++
		if limit > 0 && printed >= limit {
			s.Stop()
			stopped = true
		}
	}

	if dropped > 0 {
		logger.WithField("dropped", dropped).Debug("results after limit dropped")
	}
	return printed, nil
}

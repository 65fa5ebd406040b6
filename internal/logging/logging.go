// Package logging configures the logrus logger shared by the CLI and the
// stream engine.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/feedstream/internal/config"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr at info level with text output.
func New() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Setup applies level and format from cfg to l and directs it to w.
// An unknown level is an error; config validation has already checked the
// format.
func Setup(l *logrus.Logger, w io.Writer, cfg config.LogConfig) error {
	if w != nil {
		l.SetOutput(w)
	}

	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)

	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}

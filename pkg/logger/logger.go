package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	Format     string // json, console, auto
	TimeFormat string
	Output     string // stdout, stderr, or file path
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "auto",
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// Setup initializes the global logger.
func Setup(cfg LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	var (
		output io.Writer
		fd     uintptr
		isFile bool
	)
	switch cfg.Output {
	case "", "stdout":
		output, fd = os.Stdout, os.Stdout.Fd()
	case "stderr":
		output, fd = os.Stderr, os.Stderr.Fd()
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		output, isFile = file, true
	}

	if useConsole(cfg.Format, fd, isFile) {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: cfg.TimeFormat,
			NoColor:    isFile,
		}
	}

	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}
	return nil
}

// useConsole picks the human readable writer. "auto" means console when
// attached to a terminal and JSON otherwise.
func useConsole(format string, fd uintptr, isFile bool) bool {
	switch strings.ToLower(format) {
	case "json":
		return false
	case "console":
		return true
	}
	if isFile {
		return false
	}
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// WithComponent returns a logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

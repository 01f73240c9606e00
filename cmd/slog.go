package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// setupLogger installs the default slog logger. LOG_LEVEL=debug switches to
// colored, source-annotated output; anything else logs JSON.
func setupLogger(levelText string, w io.Writer) error {
	level := slog.LevelInfo
	if levelText != "" {
		if err := level.UnmarshalText([]byte(levelText)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", levelText, err)
		}
	}

	if level <= slog.LevelDebug {
		prefix := modulePrefix()
		slog.SetDefault(slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			AddSource:  true,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if source, ok := a.Value.Any().(*slog.Source); ok && a.Key == slog.SourceKey {
					source.File = trimModulePath(source.File, prefix)
				}
				if err, ok := a.Value.Any().(error); ok {
					errAttr := tint.Err(err)
					errAttr.Key = a.Key
					return errAttr
				}
				return a
			},
		})))
		return nil
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

// modulePrefix is "/<last module path element>/", used to shorten source paths.
func modulePrefix() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path == "" {
		return "/hfdm/"
	}
	parts := strings.Split(info.Main.Path, "/")
	return "/" + parts[len(parts)-1] + "/"
}

func trimModulePath(file, prefix string) string {
	if idx := strings.LastIndex(file, prefix); idx != -1 {
		return file[idx+len(prefix):]
	}
	return file
}

func init() {
	if err := setupLogger(os.Getenv("LOG_LEVEL"), os.Stderr); err != nil {
		panic(err)
	}
}

// SPDX-FileCopyrightText: 2025 The capbench Authors
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// redacted replaces the value of any attribute whose key is listed in secretKeys
const redacted = "****"

var secretKeys = map[string]bool{
	"password":     true,
	"bmc.password": true,
}

// New returns a logger writing to w in the given format ("text" or "json").
// Unknown levels fall back to info; an unknown format panics since it can
// only come from a programming error, config validation rejects it earlier.
func New(level, format string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLogLevel(level),
		AddSource:   true,
		ReplaceAttr: replaceAttr(format == "text"),
	}

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	case "text":
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		panic(fmt.Sprintf("invalid format: %s", format))
	}
}

func replaceAttr(shortenSource bool) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, a slog.Attr) slog.Attr {
		if secretKeys[a.Key] {
			return slog.String(a.Key, redacted)
		}
		if !shortenSource || a.Key != slog.SourceKey {
			return a
		}
		if src, ok := a.Value.Any().(*slog.Source); ok {
			src.File = shortPath(src.File)
		}
		return a
	}
}

// shortPath keeps the last two directories and the file name
func shortPath(file string) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return filepath.Join(parts...)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// internal/infra/logging/logger.go
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init はプロセス全体の logger を初期化し、グローバル logger にも設定します。
// format が "json" の場合は構造化 JSON、それ以外は人間向けのコンソール出力です。
func Init(app, level, format string) zerolog.Logger {
	return New(os.Stdout, app, level, format)
}

// New は出力先を指定して logger を作ります（テスト用）。
func New(out io.Writer, app, level, format string) zerolog.Logger {
	var w io.Writer = out
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(w).
		Level(ParseLevel(level)).
		With().Timestamp().Str("app", app).
		Logger()
	log.Logger = logger
	return logger
}

// ParseLevel は未知の値を info として扱います。
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

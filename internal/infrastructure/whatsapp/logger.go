package whatsapp

import (
	"context"
	"fmt"
	"log/slog"

	waLog "go.mau.fi/whatsmeow/util/log"
)

// slogAdapter routes whatsmeow's printf-style logging into slog.
type slogAdapter struct {
	log *slog.Logger
}

func newLogger(log *slog.Logger, module string) waLog.Logger {
	return &slogAdapter{log: log.With("module", module)}
}

func (a *slogAdapter) Errorf(msg string, args ...interface{}) { a.emit(slog.LevelError, msg, args) }
func (a *slogAdapter) Warnf(msg string, args ...interface{})  { a.emit(slog.LevelWarn, msg, args) }
func (a *slogAdapter) Infof(msg string, args ...interface{})  { a.emit(slog.LevelInfo, msg, args) }
func (a *slogAdapter) Debugf(msg string, args ...interface{}) { a.emit(slog.LevelDebug, msg, args) }

func (a *slogAdapter) Sub(module string) waLog.Logger {
	return &slogAdapter{log: a.log.With("submodule", module)}
}

func (a *slogAdapter) emit(level slog.Level, msg string, args []interface{}) {
	ctx := context.Background()
	if !a.log.Enabled(ctx, level) {
		return
	}
	a.log.Log(ctx, level, fmt.Sprintf(msg, args...))
}

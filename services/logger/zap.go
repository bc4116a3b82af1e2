// Package logsvc implements core.Logger on top of zap, reporting warnings and errors to
// Rollbar when a token is configured.
package logsvc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/eduadmin/core"
)

type Logger struct {
	sugar    *zap.SugaredLogger
	reporter reporter
}

var _ core.Logger = (*Logger)(nil)

// reporter forwards a log entry to an error tracker.
type reporter interface {
	report(level zapcore.Level, msg string, kv []interface{})
}

// New builds a development logger when conf.Debug is set and a production one otherwise.
func New(conf *core.Config) (*Logger, error) {
	var cfg zap.Config
	if conf.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if conf.TestMode {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	l := NewFromZap(zl)
	if conf.RollbarToken != "" {
		l.reporter = newRollbarReporter(conf)
	}
	return l, nil
}

// NewFromZap wraps an existing zap logger, without error reporting.
func NewFromZap(zl *zap.Logger) *Logger {
	return &Logger{sugar: zl.Sugar()}
}

func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, sanitize(args)...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, sanitize(args)...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	kv := sanitize(args)
	l.sugar.Warnw(msg, kv...)
	l.report(zapcore.WarnLevel, msg, kv)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	kv := sanitize(args)
	l.sugar.Errorw(msg, kv...)
	l.report(zapcore.ErrorLevel, msg, kv)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	kv := sanitize(args)
	l.report(zapcore.FatalLevel, msg, kv)
	l.sugar.Fatalw(msg, kv...)
}

// With returns a logger adding kv to every entry.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(sanitize(args)...), reporter: l.reporter}
}

func (l *Logger) report(level zapcore.Level, msg string, kv []interface{}) {
	if l.reporter != nil {
		l.reporter.report(level, msg, kv)
	}
}

// sanitize redacts the values of secret looking keys.
func sanitize(kv []interface{}) []interface{} {
	if len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := fmt.Sprint(kv[i])
		val := kv[i+1]
		if isSecret(key) {
			val = "[REDACTED]"
		}
		out = append(out, key, val)
	}
	return out
}

func isSecret(key string) bool {
	key = strings.ToLower(key)
	for _, word := range []string{"token", "password", "secret", "apikey", "api_key", "authorization"} {
		if strings.Contains(key, word) {
			return true
		}
	}
	return false
}

package logsvc

import (
	"fmt"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap/zapcore"

	"github.com/trezcool/eduadmin/core"
)

type rollbarReporter struct{}

func newRollbarReporter(conf *core.Config) *rollbarReporter {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(!conf.TestMode)
	return &rollbarReporter{}
}

// report sends msg along with the key/values as extras. The first error value becomes the
// reported error so Rollbar groups occurrences by it.
func (rollbarReporter) report(level zapcore.Level, msg string, kv []interface{}) {
	args := prepare(msg, kv)
	switch level {
	case zapcore.WarnLevel:
		rollbar.Warning(args...)
	case zapcore.ErrorLevel:
		rollbar.Error(args...)
	default:
		rollbar.Critical(args...)
	}
}

// expected fmt: error | msg, map[string]interface{}
func prepare(msg string, kv []interface{}) []interface{} {
	extras := map[string]interface{}{"message": msg}
	var reported error
	for i := 0; i+1 < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if err, ok := kv[i+1].(error); ok {
			if reported == nil {
				reported = err
			}
			extras[key] = err.Error()
			continue
		}
		extras[key] = kv[i+1]
	}
	if reported != nil {
		return []interface{}{reported, extras}
	}
	return []interface{}{msg, extras}
}

// Close waits for pending reports to be sent.
func Close() {
	rollbar.Close()
}

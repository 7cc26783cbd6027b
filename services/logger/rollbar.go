package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/masomo-lms/visibility/core"
)

// RollbarLogger prints to a std logger and reports to rollbar.
// Reports carry the staff member behind the request, when one is given.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable turns rollbar reporting on or off. The std logger always prints.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// prepare sets the rollbar person from the first identified core.Person and
// returns the remaining args, msg first (error, map[string]interface{}...).
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var personSet bool
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		p, ok := arg.(core.Person)
		if !ok {
			newArgs = append(newArgs, arg)
			continue
		}
		if !personSet && p.ID != "" {
			rollbar.SetPerson(p.ID, p.Username, p.Email)
			personSet = true
		}
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return newArgs
}

// print keeps people out of the local output.
func (l RollbarLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		if _, ok := arg.(core.Person); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	send(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.Debug, msg, args) }

func (l RollbarLogger) Info(msg string, args ...interface{}) { l.report(rollbar.Info, msg, args) }

func (l RollbarLogger) Warn(msg string, args ...interface{}) { l.report(rollbar.Warning, msg, args) }

func (l RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.Error, msg, args) }

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}

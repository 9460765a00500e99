// Package logrus adapts a logrus entry to stash.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/stash"
)

var _ stash.Logger = LogrusLogger{}

// LogrusLogger logs through E, or the standard logrus logger when E is nil.
// An error stored under "err" is attached with WithError.
type LogrusLogger struct{ E *logrus.Entry }

func (l LogrusLogger) Debug(msg string, f stash.Fields) { l.entry(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f stash.Fields)  { l.entry(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f stash.Fields)  { l.entry(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f stash.Fields) { l.entry(f).Error(msg) }

func (l LogrusLogger) entry(f stash.Fields) *logrus.Entry {
	e := l.E
	if e == nil {
		e = logrus.NewEntry(logrus.StandardLogger())
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		fields[k] = v
	}
	return e.WithFields(fields)
}

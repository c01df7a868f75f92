// Package logrus adapts a logrus entry to cacheaside.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/cacheaside"
)

var _ cacheaside.Logger = Logger{}

// Logger forwards to E. An error stored under "err" is attached with
// WithError so formatters render it under logrus.ErrorKey.
type Logger struct{ E *logrus.Entry }

func New(l *logrus.Logger) Logger {
	return Logger{E: logrus.NewEntry(l)}
}

func (l Logger) Debug(msg string, f cacheaside.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f cacheaside.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f cacheaside.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f cacheaside.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f cacheaside.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	var errv error
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			errv = err
			continue
		}
		lf[k] = v
	}
	e := l.E.WithFields(lf)
	if errv != nil {
		e = e.WithError(errv)
	}
	return e
}

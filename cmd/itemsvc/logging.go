package main

import (
	stdslog "log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/internal/config"
	logruslog "github.com/unkn0wn-root/cacheaside/log/logrus"
	sloglog "github.com/unkn0wn-root/cacheaside/log/slog"
	zaplog "github.com/unkn0wn-root/cacheaside/log/zap"
)

// newLogger builds the service logger: JSON in production, console output
// in development.
func newLogger(cfg config.Log) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log.level %q", cfg.Level)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// cacheLogger picks the adapter the coordinator logs through.
func cacheLogger(cfg config.Log, zl *zap.Logger) (cacheaside.Logger, error) {
	switch cfg.Backend {
	case "", "zap":
		return zaplog.New(zl.Named("cache")), nil
	case "logrus":
		l := logrus.New()
		l.SetOutput(os.Stderr)
		l.SetFormatter(&logrus.JSONFormatter{})
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log.level %q", cfg.Level)
		}
		l.SetLevel(lvl)
		return logruslog.New(l), nil
	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, errors.Wrapf(err, "log.level %q", cfg.Level)
		}
		h := stdslog.NewJSONHandler(os.Stderr, &stdslog.HandlerOptions{Level: lvl})
		return sloglog.New(stdslog.New(h).With("component", "cache")), nil
	default:
		return nil, errors.Errorf("unknown log backend %q", cfg.Backend)
	}
}

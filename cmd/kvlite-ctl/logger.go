package main

import (
	"go.uber.org/zap"

	"github.com/yeqown/kvlite"
)

// zapLogger wraps a zap.Logger to implement kvlite.Logger.
type zapLogger struct {
	logger *zap.SugaredLogger
}

func newZapLogger(verbose bool) (*zapLogger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		cfg.Encoding = "console"
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}

	return &zapLogger{logger: logger.Sugar()}, nil
}

var _ kvlite.Logger = (*zapLogger)(nil)

func (z *zapLogger) Info(msg string, args ...any)  { z.logger.Infow(msg, args...) }
func (z *zapLogger) Warn(msg string, args ...any)  { z.logger.Warnw(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.logger.Errorw(msg, args...) }

func (z *zapLogger) sync() { _ = z.logger.Sync() }

// Package logging builds the zap logger shared by the server components.
package logging

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Level string
	// File, when set, receives a JSON copy of every entry and is rotated.
	File string
	// Development switches the console encoder to colored human-readable output.
	Development bool
}

func New(cfg Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", cfg.Level)
	}

	var consoleEnc zapcore.Encoder
	if cfg.Development {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		consoleEnc = zapcore.NewConsoleEncoder(ec)
	} else {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), level),
	}

	if cfg.File != "" {
		sink := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar(), nil
}

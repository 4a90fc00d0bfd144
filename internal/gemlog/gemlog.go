// Package gemlog builds the process-wide *zap.Logger, the same logging
// vehicle used throughout the rest of the module.
package gemlog

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logger appending to path when enabled is true, so call
// sites never need to branch on whether logging is turned on; when
// disabled it returns zap.NewNop().
func New(path string, enabled bool) (*zap.Logger, error) {
	if !enabled {
		return zap.NewNop(), nil
	}

	sink, closeOut, err := zap.Open(path)
	if err != nil {
		return nil, err
	}

	cfg := zapcore.EncoderConfig{
		TimeKey:     "T",
		MessageKey:  "M",
		LevelKey:    "L",
		EncodeTime:  timestampEncoder,
		EncodeLevel: zapcore.CapitalLevelEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), sink, zapcore.InfoLevel)
	logger := zap.New(core)
	_ = closeOut
	return logger, nil
}

func timestampEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006.01.02 15:04:05"))
}

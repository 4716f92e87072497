// Package logging builds the shared structured logger, following the
// teacher's *zap.Logger field/constructor idiom in internal/app/agent.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger from the DATAFIN_LOG_LEVEL / DATAFIN_LOG_FILE
// settings. When logFile is empty, logs go to stderr only; when set, a
// tee'd core writes to both stderr and the file. The returned logger is
// safe for concurrent use by every goroutine in the scheduler and
// aggregator, satisfying the shared-sink requirement.
func New(level, logFile string) (*zap.Logger, error) {
	zapLevel := parseLevel(level)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(stderrSink{})), zapLevel),
	}

	if logFile != "" {
		f, err := openAppend(logFile)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(f)), zapLevel))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller()), nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL":
		return zapcore.DPanicLevel
	default:
		return zapcore.InfoLevel
	}
}

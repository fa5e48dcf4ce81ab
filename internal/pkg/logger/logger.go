package logger

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey struct{}

var (
	global   = zap.NewNop().Sugar()
	globalMx sync.RWMutex
)

// Init настраивает глобальный логгер. level: debug|info|warn|error.
func Init(level string, development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}

	Set(l)
	return nil
}

// Set подменяет глобальный логгер, используется в тестах.
func Set(l *zap.Logger) {
	globalMx.Lock()
	defer globalMx.Unlock()
	global = l.Sugar()
}

func Sync() {
	globalMx.RLock()
	defer globalMx.RUnlock()
	_ = global.Sync()
}

// WithFields кладёт поля в контекст, все последующие записи по этому контексту их получат.
func WithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	return context.WithValue(ctx, ctxKey{}, fromContext(ctx).With(keysAndValues...))
}

func fromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
			return l
		}
	}
	globalMx.RLock()
	defer globalMx.RUnlock()
	return global
}

func Debugf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Infof(format, args...)
}

func Info(ctx context.Context, msg string, keysAndValues ...interface{}) {
	fromContext(ctx).Infow(msg, keysAndValues...)
}

func Warnf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...interface{}) {
	fromContext(ctx).Errorf(format, args...)
}

func Error(ctx context.Context, msg string, keysAndValues ...interface{}) {
	fromContext(ctx).Errorw(msg, keysAndValues...)
}

func Fatal(ctx context.Context, args ...interface{}) {
	fromContext(ctx).Fatal(args...)
}

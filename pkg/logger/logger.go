package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string
	Environment string
	ServiceName string
}

const localsKey = "logger"

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init builds the process logger and replaces the zap globals
func Init(cfg Config) (*zap.Logger, error) {
	level := parseLevel(cfg.Level)

	var zc zap.Config
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	l, err := zc.Build(zap.Fields(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	))
	if err != nil {
		return nil, err
	}

	zap.ReplaceGlobals(l)
	return l, nil
}

// Middleware logs every request and stores a request-scoped logger in c.Locals.
// It expects fiber's requestid middleware to run first.
func Middleware(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, _ := c.Locals("requestid").(string)
		reqLogger := base.With(zap.String("request_id", requestID))
		c.Locals(localsKey, reqLogger)

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if status >= 500 {
			reqLogger.Error("HTTP Request", fields...)
		} else {
			reqLogger.Info("HTTP Request", fields...)
		}

		return err
	}
}

// FromFiber returns the request-scoped logger, falling back to the global one
func FromFiber(c *fiber.Ctx) *zap.Logger {
	if l, ok := c.Locals(localsKey).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}

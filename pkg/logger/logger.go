// Package logger builds the structured logger shared by every component of
// the bundle storage engine. The components that log take a
// *zap.SugaredLogger through their Config struct rather than reaching for
// a package-level singleton, so the engine never hard-codes an output
// sink; telemetry.New, which does not log, takes none.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-configured SugaredLogger tagged with the given
// service name. Output goes to stderr at info level and above, JSON
// encoded, matching zap's own NewProduction defaults except that
// timestamps are ISO8601-encoded and every log line carries an added
// "service" field that ties it back to the engine instance that emitted
// it.
func New(service string) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		// zap.NewProductionConfig().Build() only fails on a malformed
		// sink URL, which never happens with the default stderr sink.
		base = zap.NewExample()
	}

	return base.With(zap.String("service", service)).Sugar()
}

// Nop returns a logger that discards everything, for use in tests that
// don't care about log output.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

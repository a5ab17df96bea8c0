package logger

import "go.uber.org/zap"

// New returns a production logger for the "production" environment and a development logger otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// Must is New that panics on error, for use in main.
func Must(env string) *zap.Logger {
	return zap.Must(New(env))
}

// NewFile is New writing to path instead of stderr. Terminal UIs use it to keep the screen clean.
func NewFile(env, path string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if env == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

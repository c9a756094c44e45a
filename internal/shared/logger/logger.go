package logger

import (
	"go.uber.org/zap"
)

// New builds the service logger. Development gets the human-readable
// console encoder; everything else logs structured JSON.
func New(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Must builds the service logger or panics. Intended for main only.
func Must(env string) *zap.Logger {
	l, err := New(env)
	if err != nil {
		panic(err)
	}
	return l
}

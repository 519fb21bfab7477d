package logger

import (
	"log"

	"go.uber.org/zap"
)

// New creates a zap logger configured for the given environment: a human
// readable development logger for "local", production JSON otherwise.
func New(env string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)

	switch env {
	case "local", "dev", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}

	return logger
}

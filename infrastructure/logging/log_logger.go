// Package logging provides the production implementation of
// application.Logger.
package logging

import (
	"log"

	"p2pcrypto/application"
)

// LogLogger is application.Logger backed by the standard log package.
type LogLogger struct {
}

// NewLogLogger returns the standard-library-backed Logger.
func NewLogLogger() application.Logger {
	return &LogLogger{}
}

func (l LogLogger) Printf(format string, v ...any) {
	log.Printf(format, v...)
}

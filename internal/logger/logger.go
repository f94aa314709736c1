package logger

import (
	"go.uber.org/zap"
)

// New builds the process-wide logger. Release mode gets JSON production
// output, everything else gets the human-readable development encoder.
func New(ginMode string) (*zap.Logger, error) {
	if ginMode == "release" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

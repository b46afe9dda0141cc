package utils

import (
	"go.uber.org/zap"
)

// NewLogger returns a console logger in development and a JSON production
// logger otherwise.
func NewLogger(development bool, opts ...zap.Option) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment(opts...)
	}
	return zap.NewProduction(opts...)
}

package logging

import "go.uber.org/zap"

// New builds the process logger. The local environment gets the development
// config (console encoder, debug level); everything else gets production
// JSON logging.
func New(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

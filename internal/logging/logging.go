package logging

import "go.uber.org/zap"

// New builds the process logger: JSON production config for prod
// environments, console development config otherwise.
func New(env string) (*zap.Logger, error) {
	if env == "production" || env == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

package api

import "github.com/okian/matchengine/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithCronSecret sets the bearer secret for the cron and internal routes.
// An empty secret rejects every request on those routes.
func WithCronSecret(secret string) Option {
	return func(s *Server) {
		s.cronSecret = secret
	}
}

// WithJWTSecret sets the HS256 secret that verifies student tokens.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		s.jwtSecret = secret
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReadiness sets the check behind GET /readyz.
func WithReadiness(check ReadinessCheck) Option {
	return func(s *Server) {
		s.ready = check
	}
}

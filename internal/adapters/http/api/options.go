package api

import "github.com/okian/guessr/pkg/logger"

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. "*" allows any origin without
// credentials.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSecureCookies marks session cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secure = secure }
}

package http

import (
	"github.com/auth-api-nosql/internal/application/auth"
	"github.com/auth-api-nosql/internal/application/otp"
	jwtinfra "github.com/auth-api-nosql/internal/infrastructure/jwt"
	"github.com/auth-api-nosql/internal/infrastructure/smtp"
	"github.com/auth-api-nosql/internal/ratelimit"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    auth.UserRepository
	OTPRepo     otp.Repository
	Mailer      smtp.Mailer
	JWTProvider *jwtinfra.Provider
	Limiter     ratelimit.Limiter
}

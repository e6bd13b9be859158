package http

import (
	"github.com/identity-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/identity-api/internal/infrastructure/jwt"
	"github.com/identity-api/internal/infrastructure/mail"
	"github.com/identity-api/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo    *dynamo.UserRepo
	SessionRepo *dynamo.SessionRepo
	OTPRepo     *dynamo.OTPRepo
	PendingRepo *dynamo.PendingRepo
	Mailer      mail.Mailer
	Events      sns.EventPublisher
	JWTProvider *jwtinfra.Provider
}

package handlers

import (
	"errors"
	"strings"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	apierr "github.com/opst/eoflow/pkg/api/types/errors"
	"github.com/opst/eoflow/pkg/domain"
)

// Key of the echo context holding domain.ExecutionContext.
const ContextKeyExecution = "eoflow.execution"

var ErrNoSubject = errors.New("token has no subject")

// Authenticate accepts requests with a bearer token signed by HMAC with signKey.
//
// The subject of the token is the principal of the request.
// It and the token itself are put into the echo context, see ExecutionContextOf.
func Authenticate(signKey []byte) echo.MiddlewareFunc {
	keyfunc := func(*jwt.Token) (any, error) {
		return signKey, nil
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || raw == "" {
				return apierr.Unauthorized(`"Authorization: Bearer <token>" is required`, nil)
			}

			claims := new(jwt.RegisteredClaims)
			if _, err := parser.ParseWithClaims(raw, claims, keyfunc); err != nil {
				return apierr.Unauthorized("token is invalid", err)
			}
			if claims.Subject == "" {
				return apierr.Unauthorized("token is invalid", ErrNoSubject)
			}

			c.Set(ContextKeyExecution, domain.ExecutionContext{
				Principal: claims.Subject,
				Token:     raw,
			})
			return next(c)
		}
	}
}

// ExecutionContextOf returns the execution context of an authenticated request.
//
// It is zero when the request has passed no Authenticate.
func ExecutionContextOf(c echo.Context) domain.ExecutionContext {
	ec, _ := c.Get(ContextKeyExecution).(domain.ExecutionContext)
	return ec
}

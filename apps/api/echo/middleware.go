package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/idview/core/session"
)

const contextSessionKey = "session"

// sessionMiddleware loads the wizard session `:id` of the authenticated student.
// Sessions of other students are reported as not found.
func sessionMiddleware(svc *session.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			s, err := svc.Get(ctx.Param("id"), claims.Subject)
			if err != nil {
				if errors.Cause(err) == session.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding wizard session")
			}
			ctx.Set(contextSessionKey, s)
			return next(ctx)
		}
	}
}

func getContextSession(ctx echo.Context) (session.Session, error) {
	if s, ok := ctx.Get(contextSessionKey).(session.Session); ok {
		return s, nil
	}
	return session.Session{}, errors.New("wizard session not found in echo.Context")
}

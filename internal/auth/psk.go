package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const scheme = "PSK "

// NewPSKMiddleware guards mutating methods behind a pre-shared key
// supplied as `Authorization: PSK <key>`. Reads pass through untouched.
// With bypass set (test mode) nothing is checked.
func NewPSKMiddleware(key string, bypass bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if bypass {
				return next(c)
			}

			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return next(c)
			}

			return checkKey(c, key, next)
		}
	}
}

// RequirePSK guards every method, used for the admin API group.
func RequirePSK(key string, bypass bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if bypass {
				return next(c)
			}
			return checkKey(c, key, next)
		}
	}
}

func checkKey(c echo.Context, key string, next echo.HandlerFunc) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if subtle.ConstantTimeCompare([]byte(header), []byte(scheme+key)) != 1 {
		log.Warn().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Msg("rejected request without valid pre-shared key")
		return echo.ErrUnauthorized
	}
	return next(c)
}

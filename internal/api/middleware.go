package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

const identityContextKey = "identity"

func (s *Server) statsdMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start).Milliseconds()

		// Send metrics to statsd
		_ = s.sdClient.Incr("http.requests", []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Timing("http.response_time", time.Duration(duration)*time.Millisecond, []string{"path:" + c.Path()}, 1)
		_ = s.sdClient.Incr("http.status."+fmt.Sprint(c.Response().Status), []string{"path:" + c.Path(), "method:" + c.Request().Method}, 1)

		return err
	}
}

// sessionAuthMiddleware validates the bearer session token and stores the
// resulting Identity on the request context. Handlers read it back with
// identityFrom; services never see the raw token.
func (s *Server) sessionAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgMissingAuthHeader))
		}

		identity, err := s.authService.ValidateSessionToken(tokenStr)
		if err != nil {
			s.logger.Warnf("fail to validate session token, err: %v", err)
			return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
		}
		c.Set(identityContextKey, *identity)
		return next(c)
	}
}

// optionalSessionMiddleware resolves an identity when a token is present but
// lets anonymous requests through. Used on registry browsing where auth only
// widens visibility.
func (s *Server) optionalSessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return next(c)
		}
		identity, err := s.authService.ValidateSessionToken(tokenStr)
		if err == nil {
			c.Set(identityContextKey, *identity)
		}
		return next(c)
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return strings.TrimPrefix(authHeader, "Bearer "), nil
}

func identityFrom(c echo.Context) (itypes.Identity, bool) {
	identity, ok := c.Get(identityContextKey).(itypes.Identity)
	return identity, ok
}

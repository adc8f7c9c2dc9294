package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

// CreateSession exchanges an upstream-authenticated identity for a session
// token. Only the gateway holding the shared secret may call it; this
// service never sees raw user credentials.
func (s *Server) CreateSession(c echo.Context) error {
	secret := c.Request().Header.Get("X-Gateway-Secret")
	if s.cfg.Server.GatewaySecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.Server.GatewaySecret)) != 1 {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}

	var req struct {
		UserID string `json:"user_id" validate:"required"`
		Role   string `json:"role" validate:"required,oneof=member creator admin"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	token, expiresAt, err := s.authService.GenerateSessionToken(itypes.Identity{
		UserID: req.UserID,
		Role:   itypes.Role(req.Role),
	})
	if err != nil {
		s.logger.Errorf("failed to generate session token: %v", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse(MsgInternalError))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// IssueAccessToken mints a short-lived access token for an app block. An
// Idempotency-Key header makes retries return the originally issued token
// instead of minting a second one.
func (s *Server) IssueAccessToken(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}

	var dto itypes.TokenRequestDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	idemKey := c.Request().Header.Get("Idempotency-Key")
	cacheKey := "token_issue:" + identity.UserID + ":" + idemKey
	if idemKey != "" {
		if cached, err := s.redis.Get(c.Request().Context(), cacheKey); err == nil && cached != "" {
			var resp itypes.TokenResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, &resp))
			}
		}
	}

	resp, err := s.authService.IssueAccessToken(c.Request().Context(), identity, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}

	if idemKey != "" {
		if buf, err := json.Marshal(resp); err == nil {
			if err := s.redis.Set(c.Request().Context(), cacheKey, string(buf), 5*time.Minute); err != nil {
				s.logger.Warnf("fail to cache issued token, err: %v", err)
			}
		}
	}

	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, resp))
}

// GetActiveTokens returns all unrevoked, unexpired tokens for the caller.
func (s *Server) GetActiveTokens(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	tokens, err := s.authService.GetActiveAccessTokens(c.Request().Context(), identity)
	if err != nil {
		s.logger.Errorf("Failed to get active tokens: %v", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse(MsgInternalError))
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, tokens))
}

// RevokeToken revokes a specific token
func (s *Server) RevokeToken(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	tokenID := c.Param("tokenId")
	if tokenID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Missing token ID"))
	}
	if err := s.authService.RevokeAccessToken(c.Request().Context(), identity, tokenID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusOK)
}

// RevokeAllTokens revokes every token the caller has issued.
func (s *Server) RevokeAllTokens(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	if err := s.authService.RevokeAllAccessTokens(c.Request().Context(), identity); err != nil {
		s.logger.Errorf("Failed to revoke all tokens: %v", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse(MsgInternalError))
	}
	return c.NoContent(http.StatusOK)
}

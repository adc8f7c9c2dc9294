package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/buidl-renaissance/appblocks/internal/service"
)

// serviceErrorResponse maps service errors onto HTTP statuses. Ownership
// failures come back as 404 so the response never confirms the target
// exists.
func (s *Server) serviceErrorResponse(c echo.Context, err error) error {
	if ve, ok := service.AsValidationError(err); ok {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", ve.Error()))
	}

	switch {
	case errors.Is(err, service.ErrAppBlockNotFound),
		errors.Is(err, service.ErrConnectorNotFound),
		errors.Is(err, service.ErrProviderNotFound),
		errors.Is(err, service.ErrInstallationNotFound),
		errors.Is(err, service.ErrRegistryEntryNotFound),
		errors.Is(err, service.ErrRecipeNotFound),
		errors.Is(err, service.ErrTokenNotFound),
		errors.Is(err, service.ErrNotOwner):
		return c.JSON(http.StatusNotFound, NewErrorResponse("Not found"))
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, NewErrorResponse("Invalid installation state for this operation"))
	case errors.Is(err, service.ErrProviderNotInstallable):
		return c.JSON(http.StatusConflict, NewErrorResponse("Provider is not installable"))
	case errors.Is(err, service.ErrUpstreamProvider):
		return c.JSON(http.StatusBadGateway, NewErrorResponse("Provider upstream unreachable"))
	default:
		s.logger.Errorf("unhandled service error: %v", err)
		return c.JSON(http.StatusInternalServerError, NewErrorResponse(MsgInternalError))
	}
}

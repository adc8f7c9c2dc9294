package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (s *Server) GetConnectors(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "true"
	connectors, err := s.catalog.ListConnectors(c.Request().Context(), activeOnly)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, connectors))
}

func (s *Server) GetConnector(c echo.Context) error {
	connectorID := c.Param("connectorId")
	if connectorID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("connector id is required"))
	}
	connector, err := s.catalog.GetConnector(c.Request().Context(), connectorID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, connector))
}

func (s *Server) GetConnectorScopes(c echo.Context) error {
	connectorID := c.Param("connectorId")
	if connectorID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("connector id is required"))
	}
	scopes, err := s.catalog.ListConnectorScopes(c.Request().Context(), connectorID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, scopes))
}

func (s *Server) GetConnectorRecipes(c echo.Context) error {
	connectorID := c.Param("connectorId")
	if connectorID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("connector id is required"))
	}
	recipes, err := s.catalog.ListRecipes(c.Request().Context(), connectorID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, recipes))
}

// GetConsentView returns the scope presentation for the consent step. The
// operator's role decides which scopes come back selectable; confirming the
// view is the install POST itself.
func (s *Server) GetConsentView(c echo.Context) error {
	connectorID := c.Param("connectorId")
	if connectorID == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("connector id is required"))
	}
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}

	recipeID := c.QueryParam("recipe")
	view, err := s.catalog.ConsentView(c.Request().Context(), connectorID, recipeID, identity.Role)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse[[]itypes.ConsentScope](http.StatusOK, view))
}

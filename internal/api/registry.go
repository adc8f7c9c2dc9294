package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

// BrowseRegistry is a public listing endpoint; an authenticated caller also
// sees their own private entries.
func (s *Server) BrowseRegistry(c echo.Context) error {
	identity, _ := identityFrom(c)

	filters := itypes.RegistryFilters{}
	if category := c.QueryParam("category"); category != "" {
		filters.Category = &category
	}
	if query := c.QueryParam("q"); query != "" {
		filters.Query = &query
	}
	if tags := c.QueryParam("tags"); tags != "" {
		filters.Tags = itypes.StringList(strings.Split(tags, ",")).Normalize()
	}
	if visibility := c.QueryParam("visibility"); visibility != "" {
		v := itypes.RegistryVisibility(visibility)
		filters.Visibility = &v
	}
	filters.InstallableOnly = c.QueryParam("installable") == "true"

	take, _ := strconv.Atoi(c.QueryParam("take"))
	skip, _ := strconv.Atoi(c.QueryParam("skip"))

	list, err := s.registry.Browse(c.Request().Context(), identity, filters, take, skip)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, list))
}

func (s *Server) GetRegistryEntry(c echo.Context) error {
	slug := c.Param("slug")
	if slug == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("slug is required"))
	}
	identity, _ := identityFrom(c)

	entry, err := s.registry.GetBySlug(c.Request().Context(), identity, slug)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, entry))
}

func (s *Server) PublishRegistryEntry(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var dto itypes.RegistryPublishDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	entry, err := s.registry.Publish(c.Request().Context(), identity, appBlockID, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, NewSuccessResponse(http.StatusCreated, entry))
}

func (s *Server) UpdateRegistryEntry(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var dto itypes.RegistryUpdateDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	entry, err := s.registry.Update(c.Request().Context(), identity, appBlockID, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, entry))
}

func (s *Server) UnpublishRegistryEntry(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	if err := s.registry.Unpublish(c.Request().Context(), identity, appBlockID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

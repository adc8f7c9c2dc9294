package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (s *Server) CreateAppBlock(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}

	var dto itypes.AppBlockCreateDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	block, err := s.appBlocks.CreateAppBlock(c.Request().Context(), identity, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, NewSuccessResponse(http.StatusCreated, block))
}

func (s *Server) GetAppBlocks(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	blocks, err := s.appBlocks.ListAppBlocks(c.Request().Context(), identity)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, blocks))
}

func (s *Server) GetAppBlock(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	block, err := s.appBlocks.GetAppBlock(c.Request().Context(), identity, appBlockID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, block))
}

func (s *Server) DeleteAppBlock(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	if err := s.installer.DeleteAppBlock(c.Request().Context(), identity, appBlockID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) CreateProvider(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var dto itypes.ProviderCreateDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	cfg, err := s.appBlocks.CreateProvider(c.Request().Context(), identity, appBlockID, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, NewSuccessResponse(http.StatusCreated, cfg))
}

func (s *Server) GetProvider(c echo.Context) error {
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	cfg, err := s.appBlocks.GetProvider(c.Request().Context(), appBlockID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, cfg))
}

func (s *Server) UpdateProvider(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var dto itypes.ProviderUpdateDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	cfg, err := s.appBlocks.UpdateProvider(c.Request().Context(), identity, appBlockID, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, cfg))
}

func (s *Server) ReplaceProviderScopes(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var req struct {
		Scopes []itypes.Scope `json:"scopes" validate:"required,min=1"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	if err := s.appBlocks.ReplaceProviderScopes(c.Request().Context(), identity, appBlockID, req.Scopes); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) DeleteProvider(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	if err := s.appBlocks.DeleteProvider(c.Request().Context(), identity, appBlockID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func appBlockIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("appBlockId"))
}

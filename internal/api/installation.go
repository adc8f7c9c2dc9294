package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

func (s *Server) InstallConnector(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var dto itypes.ConnectorInstallDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	result, err := s.installer.InstallConnector(c.Request().Context(), identity, appBlockID, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, NewSuccessResponse(http.StatusCreated, result))
}

func (s *Server) GetConnectorInstallations(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	installations, err := s.installer.ListConnectorInstallations(c.Request().Context(), identity, appBlockID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, installations))
}

func (s *Server) InstallAppBlock(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}

	var dto itypes.AppBlockInstallDto
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("Invalid request format"))
	}
	if err := c.Validate(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponseWithDetails("Validation failed", err.Error()))
	}

	result, err := s.installer.InstallAppBlock(c.Request().Context(), identity, appBlockID, dto)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	status := http.StatusCreated
	if result.Installation.Status == itypes.InstallationStatusPending {
		status = http.StatusAccepted
	}
	return c.JSON(status, NewSuccessResponse(status, result))
}

func (s *Server) GetConsumerInstallations(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	installations, err := s.installer.ListConsumerInstallations(c.Request().Context(), identity, appBlockID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, installations))
}

func (s *Server) GetProviderInstallations(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	appBlockID, err := appBlockIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid app block id"))
	}
	installations, err := s.installer.ListProviderInstallations(c.Request().Context(), identity, appBlockID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, installations))
}

func (s *Server) ApproveInstallation(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	installationID, err := installationIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid installation id"))
	}
	inst, err := s.installer.Approve(c.Request().Context(), identity, installationID)
	if err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, NewSuccessResponse(http.StatusOK, inst))
}

func (s *Server) RejectInstallation(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	installationID, err := installationIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid installation id"))
	}
	if err := s.installer.Reject(c.Request().Context(), identity, installationID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) RevokeConnectorInstallation(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	installationID, err := installationIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid installation id"))
	}
	if err := s.installer.RevokeConnectorInstallation(c.Request().Context(), identity, installationID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) RevokeAppBlockInstallation(c echo.Context) error {
	identity, ok := identityFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, NewErrorResponse(MsgUnauthorized))
	}
	installationID, err := installationIDParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("invalid installation id"))
	}
	if err := s.installer.RevokeAppBlockInstallation(c.Request().Context(), identity, installationID); err != nil {
		return s.serviceErrorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func installationIDParam(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("installationId"))
}

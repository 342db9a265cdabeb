package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
)

func (s *Server) registerSettingRoutes(api *echo.Group) {
	api.PUT("/users/:user/opt-out", s.handleSetOptOut)
	api.PUT("/users/:user/overrides/:other", s.handleSetOverride)
	api.PUT("/groups/:group/members/:user", s.handleRememberMember)
}

func (s *Server) handleSetOptOut(c echo.Context) error {
	var req optOutRequest
	if err := c.Bind(&req); err != nil || req.OptOut == nil {
		return apperrors.ValidationError("body must contain opt_out")
	}

	outcome, err := s.app.SetOptOut(c.Request().Context(), c.Param("user"), *req.OptOut)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newToggleResponse(outcome)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSetOverride(c echo.Context) error {
	var req overrideRequest
	if err := c.Bind(&req); err != nil || req.Allowed == nil {
		return apperrors.ValidationError("body must contain allowed")
	}

	outcome, err := s.app.SetOverride(c.Request().Context(), c.Param("user"), c.Param("other"), *req.Allowed)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newToggleResponse(outcome)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRememberMember(c echo.Context) error {
	var req memberRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.RememberMember(c.Request().Context(), c.Param("group"), c.Param("user"), req.DisplayName); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

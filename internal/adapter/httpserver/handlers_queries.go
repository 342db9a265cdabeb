package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/chatledger/internal/ledger"
	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
)

func (s *Server) registerQueryRoutes(api *echo.Group) {
	api.GET("/groups/:group/rankings/:kind", s.handleRanking)
	api.GET("/groups/:group/users/:user", s.handleProfile)
}

func (s *Server) handleRanking(c echo.Context) error {
	kind, ok := ledger.ParseKind(c.Param("kind"))
	if !ok {
		return apperrors.ValidationError("unknown ranking kind").WithField("kind", c.Param("kind"))
	}

	view, err := s.app.Ranking(c.Request().Context(), c.Param("group"), kind)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newRankingResponse(view)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleProfile(c echo.Context) error {
	view, err := s.app.Profile(c.Request().Context(), c.Param("group"), c.Param("user"))
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newProfileResponse(view)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

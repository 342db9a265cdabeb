package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pscheid92/chatledger/internal/app"
	apperrors "github.com/pscheid92/chatledger/internal/platform/errors"
)

func (s *Server) registerInteractionRoutes(api *echo.Group) {
	api.POST("/groups/:group/interactions", s.handleInteract)
}

// handleInteract answers 200 for every decided attempt, including
// rejections; the status field says which gate stopped it.
func (s *Server) handleInteract(c echo.Context) error {
	var req interactionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	outcome, err := s.app.Interact(c.Request().Context(), app.InteractionRequest{
		GroupID:    c.Param("group"),
		ActorID:    req.ActorID,
		ActorName:  req.ActorName,
		TargetID:   req.TargetID,
		TargetName: req.TargetName,
	})
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, newInteractionResponse(outcome)); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
